package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Módulos usados nas entradas de auditoria
const (
	AuditModuleAuth       = "Autenticação"
	AuditModulePDV        = "PDV"
	AuditModuleProduct    = "Produto"
	AuditModuleStock      = "Estoque"
	AuditModuleFiscal     = "Fiscal"
	AuditModuleReceiving  = "Recebimento"
	AuditModuleFinance    = "Financeiro"
	AuditModuleUsersAdmin = "RETA"
)

// AuditSink grava trilha de auditoria em melhor esforço: falha de gravação é
// logada localmente e nunca bloqueia a operação de negócio.
type AuditSink interface {
	Append(ctx context.Context, actor, module, action, detail string)
}

type auditLogger struct {
	repo   AuditRepository
	logger *zap.Logger
}

// NewAuditSink cria um AuditSink sobre o repositório de auditoria
func NewAuditSink(repo AuditRepository, logger *zap.Logger) AuditSink {
	return &auditLogger{repo: repo, logger: logger}
}

func (a *auditLogger) Append(ctx context.Context, actor, module, action, detail string) {
	if actor == "" {
		actor = UnknownActor
	}
	record := AuditRecord{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Actor:     actor,
		Module:    module,
		Action:    action,
		Detail:    detail,
	}
	// A entrada ainda deve ser gravada mesmo que a requisição já tenha sido
	// cancelada no meio do caminho.
	if err := a.repo.Append(context.WithoutCancel(ctx), record); err != nil {
		a.logger.Warn("audit append failed",
			zap.String("modulo", module),
			zap.String("acao", action),
			zap.Error(err),
		)
	}
}
