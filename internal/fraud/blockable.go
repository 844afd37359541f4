package fraud

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"fraudwatch/internal/database"
	"fraudwatch/internal/domain"
)

// blockableAttribute maps one attribute of a purchase to a blocked-object
// type. The resolver pulls the value off the purchase (or derives it, e.g.
// an email domain or the buyer's most recent fingerprint from history); a
// blank resolved value is never considered blocked and never blocks.
type blockableAttribute struct {
	name       string
	objectType string
	resolve    func(ctx context.Context, p *domain.Purchase) string
	expiresIn  time.Duration
}

// buyerAttributes are the buyer-identifying attributes. BuyerBlocked ORs over
// all of them and BlockBuyer blocks every one.
var buyerAttributes = []blockableAttribute{
	{
		name:       "browser_guid",
		objectType: domain.BlockedObjectTypeBrowserGUID,
		resolve:    func(_ context.Context, p *domain.Purchase) string { return p.BrowserGUID },
	},
	{
		name:       "email",
		objectType: domain.BlockedObjectTypeEmail,
		resolve:    func(_ context.Context, p *domain.Purchase) string { return p.Email },
	},
	{
		name:       "paypal_email",
		objectType: domain.BlockedObjectTypeEmail,
		resolve:    func(_ context.Context, p *domain.Purchase) string { return p.PaypalEmail },
	},
	{
		name:       "gifter_email",
		objectType: domain.BlockedObjectTypeEmail,
		resolve:    func(_ context.Context, p *domain.Purchase) string { return p.GifterEmail },
	},
	{
		name:       "purchaser_email",
		objectType: domain.BlockedObjectTypeEmail,
		resolve:    resolvePurchaserEmail,
	},
	{
		name:       "ip_address",
		objectType: domain.BlockedObjectTypeIPAddress,
		resolve:    func(_ context.Context, p *domain.Purchase) string { return p.IPAddress },
		expiresIn:  domain.IPAddressBlockDuration,
	},
	{
		name:       "charge_processor_fingerprint",
		objectType: domain.BlockedObjectTypeChargeProcessorFingerprint,
		resolve:    func(_ context.Context, p *domain.Purchase) string { return p.ChargeProcessorFingerprint() },
	},
	{
		name:       "recent_stripe_fingerprint",
		objectType: domain.BlockedObjectTypeChargeProcessorFingerprint,
		resolve:    resolveRecentStripeFingerprint,
	},
}

// emailDomainAttributes cover the domain part of every email the purchase
// carries. No evaluator blocks by domain automatically; operators use it to
// ban throwaway-mail providers.
var emailDomainAttributes = []blockableAttribute{
	{
		name:       "email_domain",
		objectType: domain.BlockedObjectTypeEmailDomain,
		resolve:    func(_ context.Context, p *domain.Purchase) string { return emailDomain(p.Email) },
	},
	{
		name:       "paypal_email_domain",
		objectType: domain.BlockedObjectTypeEmailDomain,
		resolve:    func(_ context.Context, p *domain.Purchase) string { return emailDomain(p.PaypalEmail) },
	},
	{
		name:       "gifter_email_domain",
		objectType: domain.BlockedObjectTypeEmailDomain,
		resolve:    func(_ context.Context, p *domain.Purchase) string { return emailDomain(p.GifterEmail) },
	},
	{
		name:       "purchaser_email_domain",
		objectType: domain.BlockedObjectTypeEmailDomain,
		resolve: func(ctx context.Context, p *domain.Purchase) string {
			return emailDomain(resolvePurchaserEmail(ctx, p))
		},
	},
}

func resolvePurchaserEmail(ctx context.Context, p *domain.Purchase) string {
	if p.Purchaser != nil {
		return p.Purchaser.Email
	}
	if p.PurchaserID == nil {
		return ""
	}
	purchaser, err := database.GetUserByID(ctx, *p.PurchaserID)
	if err != nil || purchaser == nil {
		return ""
	}
	p.Purchaser = purchaser
	return purchaser.Email
}

// resolveRecentStripeFingerprint looks past the current transaction to the
// buyer's most recent fingerprinted purchase, catching buyers who rotate
// cards between attempts.
func resolveRecentStripeFingerprint(ctx context.Context, p *domain.Purchase) string {
	fingerprint, err := database.RecentStripeFingerprint(ctx, p.PurchaserID, p.Email)
	if err != nil {
		log.Error("Failed to resolve recent stripe fingerprint", "purchase_id", p.ID, "error", err)
		return ""
	}
	return fingerprint
}

func emailDomain(address string) string {
	address = strings.TrimSpace(address)
	at := strings.LastIndex(address, "@")
	if at <= 0 || at == len(address)-1 {
		return ""
	}
	return strings.ToLower(address[at+1:])
}

// blockedByAttribute reports whether the attribute's resolved value has an
// active entry of the mapped type.
func blockedByAttribute(ctx context.Context, p *domain.Purchase, attr blockableAttribute) (bool, error) {
	value := attr.resolve(ctx, p)
	if value == "" {
		return false, nil
	}
	record, err := database.FindActiveBlockedObject(ctx, attr.objectType, value)
	if err != nil {
		return false, fmt.Errorf("blocked_by_%s: %w", attr.name, err)
	}
	return record != nil, nil
}

func blockAttribute(ctx context.Context, p *domain.Purchase, attr blockableAttribute, blockedByID *uint) error {
	value := attr.resolve(ctx, p)
	if value == "" {
		return nil
	}
	if _, err := database.BlockObject(ctx, attr.objectType, value, blockedByID, attr.expiresIn); err != nil {
		return fmt.Errorf("block_by_%s: %w", attr.name, err)
	}
	return nil
}

func unblockAttribute(ctx context.Context, p *domain.Purchase, attr blockableAttribute) error {
	value := attr.resolve(ctx, p)
	if value == "" {
		return nil
	}
	if err := database.UnblockObject(ctx, value); err != nil {
		return fmt.Errorf("unblock_by_%s: %w", attr.name, err)
	}
	return nil
}

// BuyerBlocked reports whether any buyer-identifying attribute of the
// purchase is actively blocked. Lookup failures on one attribute do not stop
// the others; their errors are joined into the second return.
func (e *Engine) BuyerBlocked(ctx context.Context, p *domain.Purchase) (bool, error) {
	var errs []error
	for _, attr := range buyerAttributes {
		blocked, err := blockedByAttribute(ctx, p, attr)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if blocked {
			return true, nil
		}
	}
	return false, errors.Join(errs...)
}

// BlockedByEmailDomainIfFraudulentTransaction reports whether any of the
// purchase's email domains is blocked.
func (e *Engine) BlockedByEmailDomainIfFraudulentTransaction(ctx context.Context, p *domain.Purchase) (bool, error) {
	var errs []error
	for _, attr := range emailDomainAttributes {
		blocked, err := blockedByAttribute(ctx, p, attr)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if blocked {
			return true, nil
		}
	}
	return false, errors.Join(errs...)
}

// BlockBuyerOptions carries the acting operator and an optional note override
// for manual blocks. Zero value means a system-issued block with a generated
// note.
type BlockBuyerOptions struct {
	BlockingUserID *uint
	CommentContent string
}

// BlockBuyer blocks every buyer-identifying attribute of the purchase.
// Blocking is defense in depth: a failure on one attribute must not stop the
// others, so errors are collected and returned joined after all attributes
// were attempted. Finishes by flagging the purchase when the actor is a team
// member and appending an audit note to the purchase and the purchaser.
func (e *Engine) BlockBuyer(ctx context.Context, p *domain.Purchase, opts BlockBuyerOptions) error {
	var errs []error
	for _, attr := range buyerAttributes {
		if err := blockAttribute(ctx, p, attr, opts.BlockingUserID); err != nil {
			log.Error("Failed to block buyer attribute", "purchase_id", p.ID, "attribute", attr.name, "error", err)
			errs = append(errs, err)
		}
	}

	var blockingUser *domain.User
	if opts.BlockingUserID != nil {
		user, err := database.GetUserByID(ctx, *opts.BlockingUserID)
		if err != nil {
			errs = append(errs, err)
		}
		blockingUser = user
	}

	if blockingUser != nil && blockingUser.IsTeamMember {
		if err := database.SetBuyerBlockedByAdmin(ctx, p.ID, true); err != nil {
			errs = append(errs, err)
		} else {
			p.IsBuyerBlockedByAdmin = true
		}
	}

	if err := e.createBlockedBuyerComments(ctx, p, blockingUser, opts.CommentContent); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// UnblockBuyer reverses BlockBuyer: every attribute is unblocked and the
// admin-block flag is cleared if it was set.
func (e *Engine) UnblockBuyer(ctx context.Context, p *domain.Purchase) error {
	var errs []error
	for _, attr := range buyerAttributes {
		if err := unblockAttribute(ctx, p, attr); err != nil {
			log.Error("Failed to unblock buyer attribute", "purchase_id", p.ID, "attribute", attr.name, "error", err)
			errs = append(errs, err)
		}
	}

	if p.IsBuyerBlockedByAdmin {
		if err := database.SetBuyerBlockedByAdmin(ctx, p.ID, false); err != nil {
			errs = append(errs, err)
		} else {
			p.IsBuyerBlockedByAdmin = false
		}
	}

	return errors.Join(errs...)
}

func (e *Engine) createBlockedBuyerComments(ctx context.Context, p *domain.Purchase, blockingUser *domain.User, content string) error {
	if content == "" {
		switch {
		case blockingUser != nil && blockingUser.IsTeamMember:
			content = fmt.Sprintf("Buyer blocked by Admin (%s)", blockingUser.Email)
		case blockingUser != nil:
			content = fmt.Sprintf("Buyer blocked by %s", blockingUser.Email)
		default:
			content = "Buyer blocked"
		}
	}

	var authorID *uint
	if blockingUser != nil {
		authorID = &blockingUser.ID
	}

	var errs []error
	if p.PurchaserID != nil {
		purchaseID := p.ID
		err := database.CreateComment(ctx, &domain.Comment{
			UserID:      p.PurchaserID,
			PurchaseID:  &purchaseID,
			Content:     content,
			CommentType: domain.CommentTypeNote,
			AuthorID:    authorID,
		})
		if err != nil {
			errs = append(errs, err)
		}
	}

	purchaseID := p.ID
	err := database.CreateComment(ctx, &domain.Comment{
		PurchaseID:  &purchaseID,
		Content:     content,
		CommentType: domain.CommentTypeNote,
		AuthorID:    authorID,
	})
	if err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
