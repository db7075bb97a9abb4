package main

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indica registro inexistente (produto, usuário ou venda).
	ErrNotFound = errors.New("not found")

	// ErrInvalidCredentials indica matrícula inexistente ou senha incorreta.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidTransition indica transição de status de venda fora da ordem
	// PENDING -> APPROVED -> {FINALIZED | CONTINGENCY}.
	ErrInvalidTransition = errors.New("invalid sale status transition")

	// ErrSaleIDConflict indica colisão de identificador de venda. Sobrescrever
	// silenciosamente corromperia o histórico, então a gravação é rejeitada.
	ErrSaleIDConflict = errors.New("sale id already exists")
)

// ValidationError indica entrada malformada ou incompleta (HTTP 400).
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// PaymentDeniedError indica recusa do gateway de pagamento (HTTP 402).
// Recusa de negócio e falha de transporte colapsam no mesmo resultado;
// o motivo preserva a causa para auditoria.
type PaymentDeniedError struct {
	Reason string
}

func (e *PaymentDeniedError) Error() string {
	return "payment denied: " + e.Reason
}

// FatalPersistenceError indica falha de gravação depois que o pagamento já foi
// capturado. É uma janela de inconsistência conhecida: o erro é exposto ao
// chamador e a reconciliação fica para o retaguarda.
type FatalPersistenceError struct {
	Op  string
	Err error
}

func (e *FatalPersistenceError) Error() string {
	return fmt.Sprintf("fatal persistence failure during %s: %v", e.Op, e.Err)
}

func (e *FatalPersistenceError) Unwrap() error {
	return e.Err
}
