package config

import (
	"context"
	"strings"

	"github.com/mmdatafocus/barstock_backend/appctx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const tenantColumn = "bar_id"

// TenantGuardPlugin scopes queries, updates and deletes to the request's bar
// when the model has a bar_id column and the statement does not already filter on it.
//
// Raw SQL is not covered; raw queries must carry bar_id themselves.
type TenantGuardPlugin struct{}

func NewTenantGuardPlugin() *TenantGuardPlugin { return &TenantGuardPlugin{} }

func (p *TenantGuardPlugin) Name() string { return "tenant_guard" }

func (p *TenantGuardPlugin) Initialize(db *gorm.DB) error {
	if err := db.Callback().Query().Before("gorm:query").Register("tenant_guard:query", tenantGuardCallback); err != nil {
		return err
	}
	if err := db.Callback().Row().Before("gorm:row").Register("tenant_guard:row", tenantGuardCallback); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").Register("tenant_guard:update", tenantGuardCallback); err != nil {
		return err
	}
	return db.Callback().Delete().Before("gorm:delete").Register("tenant_guard:delete", tenantGuardCallback)
}

func tenantGuardCallback(db *gorm.DB) {
	if db == nil || db.Statement == nil || db.Statement.Context == nil {
		return
	}
	ctx := db.Statement.Context
	if skip, ok := ctx.Value(appctx.ContextKeySkipTenantScope).(bool); ok && skip {
		return
	}
	barId := barIdFromContext(ctx)
	if barId == "" || db.Statement.Schema == nil {
		return
	}
	if db.Statement.Schema.LookUpField(tenantColumn) == nil {
		return
	}
	if whereHasTenant(db.Statement.Clauses["WHERE"]) {
		return
	}

	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: db.Statement.Table, Name: tenantColumn},
				Value:  barId,
			},
		},
	})
}

func barIdFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(appctx.ContextKeyBarId).(string); ok {
		return v
	}
	return ""
}

func whereHasTenant(c clause.Clause) bool {
	w, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, e := range w.Exprs {
		if exprHasTenant(e) {
			return true
		}
	}
	return false
}

func exprHasTenant(e clause.Expression) bool {
	switch v := e.(type) {
	case clause.Eq:
		return isTenantColumn(v.Column)
	case clause.IN:
		return isTenantColumn(v.Column)
	case clause.AndConditions:
		for _, x := range v.Exprs {
			if exprHasTenant(x) {
				return true
			}
		}
	case clause.OrConditions:
		for _, x := range v.Exprs {
			if exprHasTenant(x) {
				return true
			}
		}
	case clause.Expr:
		return strings.Contains(strings.ToLower(v.SQL), tenantColumn)
	}
	return false
}

func isTenantColumn(col any) bool {
	switch c := col.(type) {
	case string:
		return strings.EqualFold(c, tenantColumn)
	case clause.Column:
		return strings.EqualFold(c.Name, tenantColumn)
	}
	return false
}
