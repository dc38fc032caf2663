package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ledgercore/internal/apperr"
)

// RuleType names one of the cacheable account slots on Company plus the
// account_rules lookup and auto-provisioning default for it (spec.md
// §4.4.3: "PPV and GRNI accounts are auto-provisioned the first time they
// are needed and the account id cached on the Company row").
type RuleType string

const (
	RuleAccountsPayable       RuleType = "ACCOUNTS_PAYABLE"
	RuleAccountsReceivable    RuleType = "ACCOUNTS_RECEIVABLE"
	RuleInventoryAsset        RuleType = "INVENTORY_ASSET"
	RuleGRNI                  RuleType = "GRNI"
	RulePurchasePriceVariance RuleType = "PURCHASE_PRICE_VARIANCE"
	RuleSalesIncome           RuleType = "SALES_INCOME"
	RuleVendorPrepayment      RuleType = "VENDOR_PREPAYMENT"
	RuleCustomerPrepayment    RuleType = "CUSTOMER_PREPAYMENT"
)

type ruleDefault struct {
	column        string
	defaultCode   string
	defaultName   string
	accountType   AccountType
	normalBalance NormalBalance
}

var ruleDefaults = map[RuleType]ruleDefault{
	RuleAccountsPayable:       {"accounts_payable_id", "2000-AP", "Accounts Payable", AccountLiability, NormalCredit},
	RuleAccountsReceivable:    {"accounts_receivable_id", "1100-AR", "Accounts Receivable", AccountAsset, NormalDebit},
	RuleInventoryAsset:        {"inventory_asset_id", "1200-INV", "Inventory", AccountAsset, NormalDebit},
	RuleGRNI:                  {"grni_account_id", "2010-GRNI", "Goods Received Not Invoiced", AccountLiability, NormalCredit},
	RulePurchasePriceVariance: {"purchase_price_variance_id", "5900-PPV", "Purchase Price Variance", AccountExpense, NormalDebit},
	RuleSalesIncome:           {"sales_income_id", "4000-SALES", "Sales Income", AccountIncome, NormalCredit},
	RuleVendorPrepayment:      {"vendor_prepayment_id", "1400-VADV", "Vendor Prepayments", AccountAsset, NormalDebit},
	RuleCustomerPrepayment:    {"customer_prepayment_id", "2100-CADV", "Customer Advances", AccountLiability, NormalCredit},
}

// AccountResolver generalizes the teacher's RuleEngine.ResolveAccount
// (internal/core/rule_engine.go): same account_rules table, same
// "highest priority active rule wins" lookup, but resolving to an account
// id rather than a bare code, and adding the Company-row cache and
// auto-provisioning the teacher never had.
type AccountResolver struct{}

func NewAccountResolver() *AccountResolver {
	return &AccountResolver{}
}

// Resolve returns the account id for (companyID, ruleType): the Company
// row's cached column if set, else the highest-priority active
// account_rules match (cached back onto Company), else a newly
// auto-provisioned account (also cached).
func (r *AccountResolver) Resolve(ctx context.Context, tx pgx.Tx, companyID int, ruleType RuleType) (int, error) {
	def, ok := ruleDefaults[ruleType]
	if !ok {
		return 0, apperr.New(apperr.InvalidInput, "unknown rule type %q", ruleType)
	}

	cached, err := readCachedColumn(ctx, tx, companyID, def.column)
	if err != nil {
		return 0, err
	}
	if cached != nil {
		return *cached, nil
	}

	var accountID int
	err = tx.QueryRow(ctx, `
		SELECT account_id FROM account_rules
		WHERE company_id = $1 AND rule_type = $2
		  AND (effective_to IS NULL OR effective_to >= CURRENT_DATE)
		ORDER BY priority DESC
		LIMIT 1
	`, companyID, string(ruleType)).Scan(&accountID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("rule_engine: resolving rule %q for company %d: %w", ruleType, companyID, err)
		}
		accountID, err = provisionAccount(ctx, tx, companyID, def)
		if err != nil {
			return 0, err
		}
	}

	if err := cacheColumn(ctx, tx, companyID, def.column, accountID); err != nil {
		return 0, err
	}
	return accountID, nil
}

func readCachedColumn(ctx context.Context, tx pgx.Tx, companyID int, column string) (*int, error) {
	var id *int
	// column is selected from the fixed ruleDefaults table above, never from
	// caller input, so this string-built SQL carries no injection risk.
	err := tx.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM companies WHERE id = $1`, column), companyID).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("rule_engine: reading cached %s for company %d: %w", column, companyID, err)
	}
	return id, nil
}

func cacheColumn(ctx context.Context, tx pgx.Tx, companyID int, column string, accountID int) error {
	_, err := tx.Exec(ctx, fmt.Sprintf(`UPDATE companies SET %s = $1 WHERE id = $2`, column), accountID, companyID)
	if err != nil {
		return fmt.Errorf("rule_engine: caching %s=%d on company %d: %w", column, accountID, companyID, err)
	}
	return nil
}

func provisionAccount(ctx context.Context, tx pgx.Tx, companyID int, def ruleDefault) (int, error) {
	var id int
	err := tx.QueryRow(ctx, `
		INSERT INTO accounts (company_id, code, name, type, normal_balance, is_active)
		VALUES ($1, $2, $3, $4, $5, true)
		ON CONFLICT (company_id, code) DO UPDATE SET code = accounts.code
		RETURNING id
	`, companyID, def.defaultCode, def.defaultName, string(def.accountType), string(def.normalBalance)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("rule_engine: auto-provisioning %s for company %d: %w", def.defaultCode, companyID, err)
	}
	return id, nil
}
