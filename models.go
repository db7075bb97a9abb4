package main

// LoginRequest representa a requisição de login
type LoginRequest struct {
	Matricula string `json:"matricula"`
	Senha     string `json:"senha"`
}

// LoginResponse devolve os dados que o front-end guarda na sessão
type LoginResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	UserMatricula string `json:"user_matricula"`
	UserNome      string `json:"user_nome"`
	UserPermissao string `json:"user_permissao"`
	Token         string `json:"token"`
}

// CloseSaleRequest representa o carrinho enviado pelo PDV
type CloseSaleRequest struct {
	Itens          []LineItem     `json:"itens"`
	ValorTotal     float64        `json:"valor_total"`
	DadosPagamento map[string]any `json:"dados_pagamento"`
}

// SaleResult é o resultado do fechamento de venda devolvido pelo orquestrador
type SaleResult struct {
	SaleID      string
	AccessKey   string
	Contingency bool
}

// ProductPayload representa o cadastro ou atualização de um produto.
// Campos ausentes no JSON ficam nil e são preservados no registro existente.
type ProductPayload struct {
	CodigoBarra  string   `json:"codigoBarra"`
	Nome         string   `json:"nome"`
	PrecoVenda   *float64 `json:"preco_venda"`
	CustoLiquido *float64 `json:"custoLiquido"`
	EstoqueAtual *int     `json:"estoque_atual"`
}

// ReceiveInvoiceRequest representa a confirmação de recebimento de uma NF-e
type ReceiveInvoiceRequest struct {
	NFNumero   string     `json:"nf_numero"`
	Itens      []LineItem `json:"itens"`
	ValorTotal float64    `json:"valor_total"`
}
