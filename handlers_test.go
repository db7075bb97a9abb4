package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// MockSaleCloser simula o orquestrador de vendas
type MockSaleCloser struct {
	mock.Mock
}

func (m *MockSaleCloser) CloseSale(ctx context.Context, operator string, req CloseSaleRequest) (*SaleResult, error) {
	args := m.Called(ctx, operator, req)
	if r := args.Get(0); r != nil {
		return r.(*SaleResult), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockProductManager simula o caso de uso de produtos
type MockProductManager struct {
	mock.Mock
}

func (m *MockProductManager) Save(ctx context.Context, operator string, payload ProductPayload) (bool, error) {
	args := m.Called(ctx, operator, payload)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductManager) Find(ctx context.Context, barcode string) (*Product, error) {
	args := m.Called(ctx, barcode)
	if p := args.Get(0); p != nil {
		return p.(*Product), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockInvoiceReceiver simula o caso de uso de recebimento
type MockInvoiceReceiver struct {
	mock.Mock
}

func (m *MockInvoiceReceiver) ConfirmReceipt(ctx context.Context, operator string, req ReceiveInvoiceRequest) error {
	args := m.Called(ctx, operator, req)
	return args.Error(0)
}

// MockLoginService simula o caso de uso de autenticação
type MockLoginService struct {
	mock.Mock
}

func (m *MockLoginService) Login(ctx context.Context, matricula, senha string) (*User, string, error) {
	args := m.Called(ctx, matricula, senha)
	if u := args.Get(0); u != nil {
		return u.(*User), args.String(1), args.Error(2)
	}
	return nil, args.String(1), args.Error(2)
}

type handlerMocks struct {
	auth      *MockLoginService
	sales     *MockSaleCloser
	products  *MockProductManager
	receiving *MockInvoiceReceiver
	audit     *recordingAudit
}

func newHandlerTestRouter(t *testing.T) (*gin.Engine, handlerMocks) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mocks := handlerMocks{
		auth:      new(MockLoginService),
		sales:     new(MockSaleCloser),
		products:  new(MockProductManager),
		receiving: new(MockInvoiceReceiver),
		audit:     &recordingAudit{},
	}

	handler := NewAPIHandler(
		mocks.auth, mocks.sales, mocks.products, mocks.receiving,
		mocks.audit, zap.NewNop(), otel.Tracer("test"),
	)

	r := gin.New()
	r.POST("/api/auth/login", handler.Login)

	// Identidade fixa no lugar do middleware de token
	erp := r.Group("/api/erp", func(c *gin.Context) {
		c.Set(identityContextKey, Identity{Matricula: "OP001", Permission: PermissionOperador})
	})
	erp.POST("/vendas/fechar", handler.CloseSale)
	erp.POST("/produtos/cadastrar", handler.SaveProduct)
	erp.GET("/produtos/buscar/:barcode", handler.FindProduct)
	erp.POST("/recebimento/confirmar", handler.ConfirmReceipt)

	return r, mocks
}

func postJSON(t *testing.T, r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestCloseSaleHandlerSuccess(t *testing.T) {
	r, mocks := newHandlerTestRouter(t)

	mocks.sales.On("CloseSale", mock.Anything, "OP001", mock.Anything).
		Return(&SaleResult{SaleID: "VENDA_20240101120000_123", AccessKey: "NFE-1"}, nil)

	w := postJSON(t, r, "/api/erp/vendas/fechar",
		`{"itens":[{"codigoBarra":"123","quantidade":2}],"valor_total":50.0}`)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "VENDA_20240101120000_123", body["venda_id"])
	assert.Equal(t, "NFE-1", body["chave_nfe"])
}

func TestCloseSaleHandlerContingency(t *testing.T) {
	r, mocks := newHandlerTestRouter(t)

	mocks.sales.On("CloseSale", mock.Anything, "OP001", mock.Anything).
		Return(&SaleResult{SaleID: "V1", Contingency: true}, nil)

	w := postJSON(t, r, "/api/erp/vendas/fechar",
		`{"itens":[{"codigoBarra":"123","quantidade":2}],"valor_total":50.0}`)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, ContingencyMarker, body["chave_nfe"])
}

func TestCloseSaleHandlerPaymentDenied(t *testing.T) {
	r, mocks := newHandlerTestRouter(t)

	mocks.sales.On("CloseSale", mock.Anything, "OP001", mock.Anything).
		Return(nil, &PaymentDeniedError{Reason: "Cartão recusado"})

	w := postJSON(t, r, "/api/erp/vendas/fechar",
		`{"itens":[{"codigoBarra":"123","quantidade":2}],"valor_total":50.0}`)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Contains(t, w.Body.String(), "Pagamento negado pelo Gateway.")
}

func TestCloseSaleHandlerValidation(t *testing.T) {
	r, mocks := newHandlerTestRouter(t)

	mocks.sales.On("CloseSale", mock.Anything, "OP001", mock.Anything).
		Return(nil, &ValidationError{Message: "Dados de venda incompletos."})

	w := postJSON(t, r, "/api/erp/vendas/fechar", `{"itens":[],"valor_total":0}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Dados de venda incompletos.")
}

func TestCloseSaleHandlerUnexpectedErrorIsAudited(t *testing.T) {
	r, mocks := newHandlerTestRouter(t)

	mocks.sales.On("CloseSale", mock.Anything, "OP001", mock.Anything).
		Return(nil, errors.New("boom"))

	w := postJSON(t, r, "/api/erp/vendas/fechar",
		`{"itens":[{"codigoBarra":"123","quantidade":2}],"valor_total":50.0}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.True(t, mocks.audit.hasAction("Erro Crítico"))
}

func TestLoginHandlerSuccess(t *testing.T) {
	r, mocks := newHandlerTestRouter(t)

	mocks.auth.On("Login", mock.Anything, "ADMIN01", "senha").
		Return(&User{Matricula: "ADMIN01", Name: "Jéssica Admin", Permission: PermissionAdmin}, "tok123", nil)

	w := postJSON(t, r, "/api/auth/login", `{"matricula":"ADMIN01","senha":"senha"}`)

	assert.Equal(t, http.StatusOK, w.Code)

	var body LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "ADMIN01", body.UserMatricula)
	assert.Equal(t, PermissionAdmin, body.UserPermissao)
	assert.Equal(t, "tok123", body.Token)
}

func TestLoginHandlerInvalidCredentials(t *testing.T) {
	r, mocks := newHandlerTestRouter(t)

	mocks.auth.On("Login", mock.Anything, "OP001", "errada").
		Return(nil, "", ErrInvalidCredentials)

	w := postJSON(t, r, "/api/auth/login", `{"matricula":"OP001","senha":"errada"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Matrícula ou senha inválida.")
}

func TestFindProductHandlerNotFound(t *testing.T) {
	r, mocks := newHandlerTestRouter(t)

	mocks.products.On("Find", mock.Anything, "999").Return(nil, ErrNotFound)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/erp/produtos/buscar/999", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Produto não encontrado.")
}

func TestFindProductHandlerSuccess(t *testing.T) {
	r, mocks := newHandlerTestRouter(t)

	mocks.products.On("Find", mock.Anything, "123").
		Return(&Product{Barcode: "123", Name: "Café 500g", Stock: 8}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/erp/produtos/buscar/123", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Café 500g", body.Name)
	assert.Equal(t, 8, body.Stock)
}

func TestSaveProductHandler(t *testing.T) {
	r, mocks := newHandlerTestRouter(t)

	mocks.products.On("Save", mock.Anything, "OP001", mock.MatchedBy(func(p ProductPayload) bool {
		return p.CodigoBarra == "123" && p.Nome == "Café 500g"
	})).Return(true, nil)

	w := postJSON(t, r, "/api/erp/produtos/cadastrar", `{"codigoBarra":"123","nome":"Café 500g"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Cadastro de produto bem-sucedido.")
}

func TestConfirmReceiptHandler(t *testing.T) {
	r, mocks := newHandlerTestRouter(t)

	mocks.receiving.On("ConfirmReceipt", mock.Anything, "OP001", mock.MatchedBy(func(req ReceiveInvoiceRequest) bool {
		return req.NFNumero == "1234" && len(req.Itens) == 1
	})).Return(nil)

	w := postJSON(t, r, "/api/erp/recebimento/confirmar",
		`{"nf_numero":"1234","itens":[{"codigoBarra":"123","quantidade":10,"custo_unitario":4.5}],"valor_total":45.0}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Recebimento da NF 1234 concluído")
}
