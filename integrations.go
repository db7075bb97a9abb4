package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const integrationTimeout = 5 * time.Second

// PaymentResult é o desfecho da autorização de pagamento. Recusa do gateway e
// falha de transporte colapsam ambas em Approved=false; Reason preserva a causa.
type PaymentResult struct {
	Approved      bool
	TransactionID string
	Reason        string
}

// FiscalResult é o desfecho da emissão da NF-e
type FiscalResult struct {
	Authorized bool
	AccessKey  string
}

// PaymentGateway abstrai o gateway de pagamento
type PaymentGateway interface {
	Authorize(ctx context.Context, total float64, details map[string]any) PaymentResult
}

// FiscalIssuer abstrai o emissor de NF-e
type FiscalIssuer interface {
	Issue(ctx context.Context, sale *Sale, items []LineItem) FiscalResult
}

type paymentGatewayResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
	Motivo string `json:"motivo"`
}

type fiscalIssuerResponse struct {
	Status      string `json:"status"`
	ChaveAcesso string `json:"chave_acesso"`
}

// IntegrationsClient fala com o gateway de pagamento e com o emissor de NF-e.
// Timeout, erro de rede e resposta não-2xx são traduzidos para o desfecho
// negativo de negócio; o orquestrador nunca vê uma exceção de transporte.
type IntegrationsClient struct {
	http       *resty.Client
	paymentURL string
	fiscalURL  string
	logger     *zap.Logger
}

// NewIntegrationsClient cria um cliente com timeout limitado
func NewIntegrationsClient(paymentURL, fiscalURL string, logger *zap.Logger) *IntegrationsClient {
	return &IntegrationsClient{
		http:       resty.New().SetTimeout(integrationTimeout),
		paymentURL: paymentURL,
		fiscalURL:  fiscalURL,
		logger:     logger,
	}
}

func (c *IntegrationsClient) Authorize(ctx context.Context, total float64, details map[string]any) PaymentResult {
	var out paymentGatewayResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"valor": total, "dados": details}).
		SetResult(&out).
		Post(c.paymentURL)
	if err != nil {
		c.logger.Warn("payment gateway unreachable", zap.Error(err))
		return PaymentResult{Reason: fmt.Sprintf("Erro de conexão com o Gateway: %v", err)}
	}
	if resp.IsError() {
		c.logger.Warn("payment gateway returned error status", zap.Int("status", resp.StatusCode()))
		return PaymentResult{Reason: fmt.Sprintf("Gateway respondeu HTTP %d", resp.StatusCode())}
	}

	if out.Status == "APROVADO" {
		return PaymentResult{Approved: true, TransactionID: out.ID}
	}
	reason := out.Motivo
	if reason == "" {
		reason = "Pagamento negado pelo Gateway."
	}
	return PaymentResult{Reason: reason}
}

func (c *IntegrationsClient) Issue(ctx context.Context, sale *Sale, items []LineItem) FiscalResult {
	var out fiscalIssuerResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"venda": sale, "itens": items}).
		SetResult(&out).
		Post(c.fiscalURL)
	if err != nil {
		c.logger.Warn("fiscal issuer unreachable", zap.String("id_venda", sale.ID), zap.Error(err))
		return FiscalResult{}
	}
	if resp.IsError() {
		c.logger.Warn("fiscal issuer returned error status",
			zap.String("id_venda", sale.ID),
			zap.Int("status", resp.StatusCode()),
		)
		return FiscalResult{}
	}

	if out.Status == "AUTORIZADO" && out.ChaveAcesso != "" {
		return FiscalResult{Authorized: true, AccessKey: out.ChaveAcesso}
	}
	return FiscalResult{}
}
