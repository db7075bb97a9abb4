package main

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Status possíveis de uma venda
const (
	SaleStatusPending     = "PENDING"
	SaleStatusApproved    = "APPROVED"
	SaleStatusFinalized   = "FINALIZED"
	SaleStatusContingency = "CONTINGENCY"
	SaleStatusFailed      = "FAILED"
)

// Níveis de acesso dos usuários
const (
	PermissionAdmin    = "Admin"
	PermissionGerente  = "Gerente"
	PermissionOperador = "Operador"
)

// UnknownActor identifica entradas de auditoria sem contexto de autenticação.
const UnknownActor = "DESCONHECIDO"

// ContingencyMarker é devolvido no campo chave_nfe quando a emissão fiscal
// falhou e a venda ficou em contingência.
const ContingencyMarker = "Contingência"

// LineItem é um item do carrinho. Imutável depois que o carrinho é enviado.
type LineItem struct {
	Barcode   string  `json:"codigoBarra"`
	Quantity  int     `json:"quantidade"`
	Name      string  `json:"nome,omitempty"`
	UnitPrice float64 `json:"preco_unitario,omitempty"`
	UnitCost  float64 `json:"custo_unitario,omitempty"`
}

// Sale representa uma venda fechada no PDV
type Sale struct {
	ID            string     `json:"id_venda"`
	Operator      string     `json:"matricula_operador"`
	Items         []LineItem `json:"itens"`
	TotalAmount   float64    `json:"valor_total"`
	TransactionID string     `json:"transacao_id,omitempty"`
	AccessKey     string     `json:"nfe_chave,omitempty"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
}

// NewSale cria uma nova venda pendente de autorização de pagamento
func NewSale(id, operator string, items []LineItem, total float64) *Sale {
	return &Sale{
		ID:          id,
		Operator:    operator,
		Items:       items,
		TotalAmount: total,
		Status:      SaleStatusPending,
		CreatedAt:   time.Now(),
	}
}

// newSaleID gera um identificador ordenável por tempo com um sufixo aleatório
// de três dígitos. A unicidade global fica a cargo da chave primária da tabela
// de vendas.
func newSaleID(now time.Time) string {
	return fmt.Sprintf("VENDA_%s_%d", now.Format("20060102150405"), 100+rand.Intn(900))
}

// Approve registra a autorização do gateway de pagamento
func (s *Sale) Approve(transactionID string) error {
	if s.Status != SaleStatusPending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, SaleStatusApproved)
	}
	s.Status = SaleStatusApproved
	s.TransactionID = transactionID
	return nil
}

// Finalize registra a autorização da NF-e. Exige a chave de acesso.
func (s *Sale) Finalize(accessKey string) error {
	if s.Status != SaleStatusApproved {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, SaleStatusFinalized)
	}
	if accessKey == "" {
		return errors.New("finalized sale requires a fiscal access key")
	}
	s.Status = SaleStatusFinalized
	s.AccessKey = accessKey
	return nil
}

// MarkContingency registra a falha de emissão fiscal. A venda continua válida,
// sem chave de acesso.
func (s *Sale) MarkContingency() error {
	if s.Status != SaleStatusApproved {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, SaleStatusContingency)
	}
	s.Status = SaleStatusContingency
	s.AccessKey = ""
	return nil
}

// Fail marca a venda como falha irrecuperável. Alcançável de qualquer estado.
func (s *Sale) Fail() {
	s.Status = SaleStatusFailed
}

// Product é o registro de um produto no catálogo, indexado pelo código de barras.
type Product struct {
	Barcode      string    `json:"codigoBarra"`
	Name         string    `json:"nome"`
	Price        float64   `json:"preco_venda"`
	NetCost      float64   `json:"custoLiquido"`
	Stock        int       `json:"estoque_atual"`
	RegisteredBy string    `json:"cadastrado_por,omitempty"`
	LastUpdated  time.Time `json:"last_updated"`
}

// ProductUpdate é uma atualização parcial de produto. Campos nil são
// preservados no registro existente; campos presentes sobrescrevem.
type ProductUpdate struct {
	Barcode      string
	Name         *string
	Price        *float64
	NetCost      *float64
	Stock        *int
	RegisteredBy *string
}

// nextStock calcula o estoque resultante de um ajuste, com piso em zero.
func nextStock(current, delta int) int {
	if s := current + delta; s > 0 {
		return s
	}
	return 0
}

// User é um operador cadastrado, indexado pela matrícula.
type User struct {
	Matricula    string `json:"matricula"`
	Name         string `json:"nome"`
	Permission   string `json:"acesso"`
	PasswordHash string `json:"-"`
}

// AuditRecord é uma entrada imutável do log de auditoria.
type AuditRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"ts"`
	Actor     string    `json:"matricula"`
	Module    string    `json:"modulo"`
	Action    string    `json:"acao"`
	Detail    string    `json:"detalhe"`
}
