// Command console is a REPL-free CLI dispatcher over internal/app's command
// surface, generalized from the teacher's cmd/app/main.go switch-on-os.Args
// dispatch table (propose/validate/commit/bal) minus its AI interpretation
// loop: every command here reads a JSON payload from stdin and writes the
// JSON result (or a JSON error envelope) to stdout.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"ledgercore/internal/app"
	"ledgercore/internal/config"
	"ledgercore/internal/db"
	"ledgercore/internal/lock"
	"ledgercore/internal/outbox"
	"ledgercore/internal/tenant"
)

// commandFunc decodes stdin's JSON payload and runs one app.Service command.
type commandFunc func(ctx context.Context, svc *app.Service, raw json.RawMessage) (any, error)

var commands = map[string]commandFunc{
	"journal-entry.post":    decodeAndRun(func(s *app.Service, ctx context.Context, r app.PostJournalEntryRequest) (any, error) { return s.PostJournalEntry(ctx, r) }),
	"journal-entry.reverse": decodeAndRun(func(s *app.Service, ctx context.Context, r app.ReverseJournalEntryRequest) (any, error) { return s.ReverseJournalEntry(ctx, r) }),

	"invoice.create":              decodeAndRun(func(s *app.Service, ctx context.Context, r app.CreateInvoiceRequest) (any, error) { return s.CreateInvoice(ctx, r) }),
	"invoice.update":              decodeAndRun(func(s *app.Service, ctx context.Context, r app.UpdateDocumentLinesRequest) (any, error) { return s.UpdateInvoice(ctx, r) }),
	"invoice.approve":             decodeAndRun(func(s *app.Service, ctx context.Context, r app.DocumentActionRequest) (any, error) { return s.ApproveInvoice(ctx, r) }),
	"invoice.delete":              decodeAndRun(func(s *app.Service, ctx context.Context, r app.DocumentActionRequest) (any, error) { return s.DeleteInvoice(ctx, r) }),
	"invoice.post":                decodeAndRun(func(s *app.Service, ctx context.Context, r app.DocumentActionRequest) (any, error) { return s.PostInvoice(ctx, r) }),
	"invoice.adjust":              decodeAndRun(func(s *app.Service, ctx context.Context, r app.AdjustInvoiceRequest) (any, error) { return s.AdjustInvoice(ctx, r) }),
	"invoice.void":                decodeAndRun(func(s *app.Service, ctx context.Context, r app.VoidDocumentRequest) (any, error) { return s.VoidInvoice(ctx, r) }),
	"invoice.applyPayment":        decodeAndRun(func(s *app.Service, ctx context.Context, r app.ApplyPaymentRequest) (any, error) { return s.ApplyPaymentToInvoice(ctx, r) }),
	"invoice.applyCustomerAdvance": decodeAndRun(func(s *app.Service, ctx context.Context, r app.ApplySourceDocumentRequest) (any, error) {
		return s.ApplyCustomerAdvanceToInvoice(ctx, r)
	}),
	"invoice.applyCreditNote": decodeAndRun(func(s *app.Service, ctx context.Context, r app.ApplySourceDocumentRequest) (any, error) {
		return s.ApplyCreditNoteToInvoice(ctx, r)
	}),

	"purchaseReceipt.create": decodeAndRun(func(s *app.Service, ctx context.Context, r app.CreatePurchaseReceiptRequest) (any, error) {
		return s.CreatePurchaseReceipt(ctx, r)
	}),
	"purchaseReceipt.post": decodeAndRun(func(s *app.Service, ctx context.Context, r app.DocumentActionRequest) (any, error) { return s.PostPurchaseReceipt(ctx, r) }),

	"purchaseBill.create":  decodeAndRun(func(s *app.Service, ctx context.Context, r app.CreatePurchaseBillRequest) (any, error) { return s.CreatePurchaseBill(ctx, r) }),
	"purchaseBill.update":  decodeAndRun(func(s *app.Service, ctx context.Context, r app.UpdateDocumentLinesRequest) (any, error) { return s.UpdatePurchaseBill(ctx, r) }),
	"purchaseBill.approve": decodeAndRun(func(s *app.Service, ctx context.Context, r app.DocumentActionRequest) (any, error) { return s.ApprovePurchaseBill(ctx, r) }),
	"purchaseBill.delete":  decodeAndRun(func(s *app.Service, ctx context.Context, r app.DocumentActionRequest) (any, error) { return s.DeletePurchaseBill(ctx, r) }),
	"purchaseBill.post":    decodeAndRun(func(s *app.Service, ctx context.Context, r app.DocumentActionRequest) (any, error) { return s.PostPurchaseBill(ctx, r) }),
	"purchaseBill.adjust":  decodeAndRun(func(s *app.Service, ctx context.Context, r app.AdjustInvoiceRequest) (any, error) { return s.AdjustPurchaseBill(ctx, r) }),
	"purchaseBill.void":    decodeAndRun(func(s *app.Service, ctx context.Context, r app.VoidDocumentRequest) (any, error) { return s.VoidPurchaseBill(ctx, r) }),
	"purchaseBill.applyPayment": decodeAndRun(func(s *app.Service, ctx context.Context, r app.ApplyPaymentRequest) (any, error) {
		return s.ApplyPaymentToBill(ctx, r)
	}),
	"purchaseBill.applyVendorCredit": decodeAndRun(func(s *app.Service, ctx context.Context, r app.ApplySourceDocumentRequest) (any, error) {
		return s.ApplyVendorCreditToBill(ctx, r)
	}),
	"purchaseBill.applyVendorAdvance": decodeAndRun(func(s *app.Service, ctx context.Context, r app.ApplySourceDocumentRequest) (any, error) {
		return s.ApplyVendorAdvanceToBill(ctx, r)
	}),

	"vendorCredit.create": decodeAndRun(func(s *app.Service, ctx context.Context, r app.CreateVendorCreditRequest) (any, error) { return s.CreateVendorCredit(ctx, r) }),
	"vendorCredit.post":   decodeAndRun(func(s *app.Service, ctx context.Context, r app.DocumentActionRequest) (any, error) { return s.PostVendorCredit(ctx, r) }),
	"vendorCredit.void":   decodeAndRun(func(s *app.Service, ctx context.Context, r app.VoidDocumentRequest) (any, error) { return s.VoidVendorCredit(ctx, r) }),

	"vendorAdvance.create":   decodeAndRun(func(s *app.Service, ctx context.Context, r app.CreateAdvanceRequest) (any, error) { return s.CreateVendorAdvance(ctx, r) }),
	"vendorAdvance.apply":    decodeAndRun(func(s *app.Service, ctx context.Context, r app.ApplySourceDocumentRequest) (any, error) { return s.ApplyVendorAdvance(ctx, r) }),
	"customerAdvance.create": decodeAndRun(func(s *app.Service, ctx context.Context, r app.CreateAdvanceRequest) (any, error) { return s.CreateCustomerAdvance(ctx, r) }),

	"period.close": decodeAndRun(func(s *app.Service, ctx context.Context, r app.ClosePeriodRequest) (any, error) { return s.ClosePeriod(ctx, r) }),

	"trial-balance": func(ctx context.Context, svc *app.Service, raw json.RawMessage) (any, error) {
		var req struct {
			CompanyID int `json:"companyId"`
		}
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, fmt.Errorf("decoding trial-balance request: %w", err)
		}
		return svc.GetTrialBalance(withConsoleActor(ctx, req.CompanyID), req.CompanyID)
	},
}

// decodeAndRun adapts a typed (svc, ctx, request) -> (response, error)
// command method into the untyped commandFunc the dispatch table holds,
// peeking the payload's companyId first so the actor on ctx matches it.
func decodeAndRun[R any](call func(svc *app.Service, ctx context.Context, req R) (any, error)) commandFunc {
	return func(ctx context.Context, svc *app.Service, raw json.RawMessage) (any, error) {
		var req R
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, fmt.Errorf("decoding request: %w", err)
		}
		var peek struct {
			CompanyID int `json:"companyId"`
		}
		_ = json.Unmarshal(raw, &peek)
		return call(svc, withConsoleActor(ctx, peek.CompanyID), req)
	}
}

// withConsoleActor stamps ctx with a tenant.Actor scoped to companyID,
// acting as the operator running this process — the console has no login
// session to draw a real actor id from.
func withConsoleActor(ctx context.Context, companyID int) context.Context {
	return tenant.WithActor(ctx, tenant.Actor{CompanyID: companyID, ActorID: "console"})
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		log.Fatalf("usage: %s <command> < request.json\navailable commands: see internal/app for the full list", os.Args[0])
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		log.Fatalf("unknown command: %s", os.Args[1])
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer redisClient.Close()
	lockSvc := lock.NewRedisService(redisClient)

	svc := app.NewService(pool, lockSvc, outbox.NoOpPublisher{})

	raw, err := io.ReadAll(bufio.NewReader(os.Stdin))
	if err != nil {
		log.Fatalf("reading stdin: %v", err)
	}

	result, err := cmd(ctx, svc, raw)
	if err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
}
