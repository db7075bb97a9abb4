package main

import (
	"context"
	"errors"
	"math/rand"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// SaleCloser define a interface do orquestrador de vendas
type SaleCloser interface {
	CloseSale(ctx context.Context, operator string, req CloseSaleRequest) (*SaleResult, error)
}

// ProductManager define a interface de cadastro e consulta de produtos
type ProductManager interface {
	Save(ctx context.Context, operator string, payload ProductPayload) (bool, error)
	Find(ctx context.Context, barcode string) (*Product, error)
}

// InvoiceReceiver define a interface de recebimento de NF-e
type InvoiceReceiver interface {
	ConfirmReceipt(ctx context.Context, operator string, req ReceiveInvoiceRequest) error
}

// LoginService define a interface de autenticação
type LoginService interface {
	Login(ctx context.Context, matricula, senha string) (*User, string, error)
}

// APIHandler contém os handlers HTTP do backend
type APIHandler struct {
	auth      LoginService
	sales     SaleCloser
	products  ProductManager
	receiving InvoiceReceiver
	audit     AuditSink
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewAPIHandler cria uma nova instância de APIHandler
func NewAPIHandler(
	auth LoginService,
	sales SaleCloser,
	products ProductManager,
	receiving InvoiceReceiver,
	audit AuditSink,
	logger *zap.Logger,
	tracer trace.Tracer,
) *APIHandler {
	return &APIHandler{
		auth:      auth,
		sales:     sales,
		products:  products,
		receiving: receiving,
		audit:     audit,
		logger:    logger,
		tracer:    tracer,
	}
}

// Login verifica as credenciais e emite o token de sessão
func (h *APIHandler) Login(c *gin.Context) {
	var req LoginRequest
	_ = c.ShouldBindJSON(&req) // campos ausentes caem na validação do use case

	user, token, err := h.auth.Login(c.Request.Context(), req.Matricula, req.Senha)
	if err != nil {
		var vErr *ValidationError
		switch {
		case errors.As(err, &vErr):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": vErr.Message})
		case errors.Is(err, ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Matrícula ou senha inválida."})
		case errors.Is(err, ErrMissingPasswordHash):
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Erro de segurança: Hash de senha ausente."})
		default:
			h.logger.Error("login failed", zap.String("matricula", req.Matricula), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Erro interno do servidor."})
		}
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Success:       true,
		Message:       "Login bem-sucedido.",
		UserMatricula: user.Matricula,
		UserNome:      user.Name,
		UserPermissao: user.Permission,
		Token:         token,
	})
}

// CloseSale fecha uma venda do PDV (pagamento, registro, estoque e NF-e)
func (h *APIHandler) CloseSale(c *gin.Context) {
	identity, _ := identityFrom(c)

	ctx, span := h.tracer.Start(c.Request.Context(), "close_sale")
	defer span.End()
	span.SetAttributes(attribute.String("matricula_operador", identity.Matricula))

	var req CloseSaleRequest
	_ = c.ShouldBindJSON(&req)
	span.SetAttributes(
		attribute.Float64("valor_total", req.ValorTotal),
		attribute.Int("itens", len(req.Itens)),
	)

	result, err := h.sales.CloseSale(ctx, identity.Matricula, req)
	if err != nil {
		span.RecordError(err)
		var vErr *ValidationError
		var pErr *PaymentDeniedError
		var fErr *FatalPersistenceError
		switch {
		case errors.As(err, &vErr):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": vErr.Message})
		case errors.As(err, &pErr):
			c.JSON(http.StatusPaymentRequired, gin.H{"success": false, "message": "Pagamento negado pelo Gateway."})
		case errors.As(err, &fErr):
			h.logger.Error("sale closing failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Erro interno ao finalizar a venda."})
		default:
			h.logger.Error("unexpected error closing sale", zap.Error(err))
			h.audit.Append(ctx, identity.Matricula, AuditModulePDV, "Erro Crítico", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Erro interno ao finalizar a venda."})
		}
		return
	}

	span.SetAttributes(attribute.String("id_venda", result.SaleID))

	chave := result.AccessKey
	if result.Contingency {
		chave = ContingencyMarker
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Venda finalizada com sucesso! Pagamento Aprovado e NF-e Emitida.",
		"venda_id":  result.SaleID,
		"chave_nfe": chave,
	})
}

// SaveProduct cadastra ou atualiza um produto
func (h *APIHandler) SaveProduct(c *gin.Context) {
	identity, _ := identityFrom(c)

	var payload ProductPayload
	_ = c.ShouldBindJSON(&payload)

	created, err := h.products.Save(c.Request.Context(), identity.Matricula, payload)
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": vErr.Message})
			return
		}
		h.logger.Error("failed to save product", zap.String("codigoBarra", payload.CodigoBarra), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Erro ao salvar produto."})
		return
	}

	message := "Atualização de produto bem-sucedida."
	if created {
		message = "Cadastro de produto bem-sucedido."
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
}

// FindProduct busca um produto pelo código de barras
func (h *APIHandler) FindProduct(c *gin.Context) {
	barcode := c.Param("barcode")

	product, err := h.products.Find(c.Request.Context(), barcode)
	if err != nil {
		var vErr *ValidationError
		switch {
		case errors.As(err, &vErr):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": vErr.Message})
		case errors.Is(err, ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Produto não encontrado."})
		default:
			h.logger.Error("failed to find product", zap.String("codigoBarra", barcode), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Erro ao buscar produto."})
		}
		return
	}

	c.JSON(http.StatusOK, product)
}

// ConfirmReceipt confirma o recebimento de uma NF-e de fornecedor
func (h *APIHandler) ConfirmReceipt(c *gin.Context) {
	identity, _ := identityFrom(c)

	ctx, span := h.tracer.Start(c.Request.Context(), "confirm_receipt")
	defer span.End()

	var req ReceiveInvoiceRequest
	_ = c.ShouldBindJSON(&req)
	span.SetAttributes(
		attribute.String("nf_numero", req.NFNumero),
		attribute.Int("itens", len(req.Itens)),
	)

	if err := h.receiving.ConfirmReceipt(ctx, identity.Matricula, req); err != nil {
		span.RecordError(err)
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": vErr.Message})
			return
		}
		h.logger.Error("failed to confirm receipt", zap.String("nf_numero", req.NFNumero), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Erro ao confirmar recebimento."})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Recebimento da NF " + req.NFNumero + " concluído: Estoque e Custos atualizados, Título a Pagar gerado.",
	})
}

// ListUsers devolve a listagem simulada do módulo de administração (RETA).
// O acesso já foi restringido a Admin/Gerente pelo middleware.
func (h *APIHandler) ListUsers(c *gin.Context) {
	c.JSON(http.StatusOK, []gin.H{
		{"matricula": "ADMIN01", "nome": "Jéssica Admin", "acesso": PermissionAdmin},
		{"matricula": "GERENTE01", "nome": "Roberto Gerente", "acesso": PermissionGerente},
		{"matricula": "OP001", "nome": "Carlos Operador", "acesso": PermissionOperador},
	})
}

// DashboardKPIs devolve indicadores simulados para o dashboard gerencial
func (h *APIHandler) DashboardKPIs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"kpis": gin.H{
			"venda_bruta_hoje":        5000 + rand.Float64()*10000,
			"margem_bruta_percentual": 25 + rand.Float64()*10,
			"itens_ponto_pedido":      15 + rand.Intn(16),
			"estoque_total_valor":     150000 + rand.Float64()*150000,
		},
		"auditoria": []gin.H{
			{"usuario": "ADMIN01", "acesso": PermissionAdmin, "tempoLogado": "1:45", "ultimaAcao": "Consulta KPI"},
			{"usuario": "GERENTE01", "acesso": PermissionGerente, "tempoLogado": "2:10", "ultimaAcao": "Confirma NF 1234"},
			{"usuario": "OP001", "acesso": PermissionOperador, "tempoLogado": "0:30", "ultimaAcao": "Venda #987"},
			{"usuario": "OP002", "acesso": PermissionOperador, "tempoLogado": "1:00", "ultimaAcao": "Busca Produto"},
		},
	})
}

// HealthCheck verifica a saúde do serviço
func (h *APIHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pdv-erp-api",
	})
}
