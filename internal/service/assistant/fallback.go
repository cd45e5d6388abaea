package assistant

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/aiva/backend/internal/analysis/intent"
	"github.com/zhouzirui/aiva/backend/internal/model/action"
	"github.com/zhouzirui/aiva/backend/internal/model/catalog"
)

const (
	msgProcessing = "Elaboro la richiesta..."
	msgAddNeeds   = "Per aggiungere al carrello, mi serve sapere taglia e colore. Quali preferisci?"
)

// fallback answers with literal keyword matching when no delegate is
// available. It never performs fuzzy or multi-entity resolution.
func (r *Resolver) fallback(ctx context.Context, in *Input, out *emitter) {
	if !out.emit(action.Processing(msgProcessing)) {
		return
	}
	if !wait(ctx, r.cfg.FallbackDelay) {
		return
	}

	decision := intent.Detect(in.Text)
	r.logger.Debug("fallback intent", zap.String("intent", string(decision.Intent)), zap.String("keyword", decision.Keyword))

	for _, ev := range r.fallbackEvents(ctx, decision, in) {
		if !out.emit(ev) {
			return
		}
	}
	out.emit(action.Complete())
}

func (r *Resolver) fallbackEvents(ctx context.Context, d intent.Decision, in *Input) []action.Event {
	done := func(name action.Name, params map[string]any, msg string) []action.Event {
		return []action.Event{action.FunctionComplete(name, params, msg)}
	}

	switch d.Intent {
	case intent.Close:
		return done(action.CloseConversation, map[string]any{}, r.validator.Message(action.CloseConversation, nil))
	case intent.Shipping:
		info, err := r.catalog.Shipping(ctx)
		if err != nil {
			r.logger.Warn("shipping info unavailable", zap.Error(err))
			info = catalog.DefaultShipping
		}
		return done(action.GetShippingInfo, map[string]any{"info": info}, shippingMessage(info))
	case intent.Sale:
		return done(action.GetCurrentPromotions, map[string]any{}, "Ti mostro le nostre offerte speciali!")
	case intent.ClearCart:
		return done(action.ClearCart, map[string]any{}, r.validator.Message(action.ClearCart, nil))
	case intent.RemoveOne:
		return done(action.RemoveLastCartItem, map[string]any{}, r.validator.Message(action.RemoveLastCartItem, nil))
	case intent.Cart:
		return done(action.GetCartSummary, map[string]any{}, r.validator.Message(action.GetCartSummary, nil))
	case intent.AddToCart:
		return []action.Event{action.Response(msgAddNeeds)}
	case intent.SizeGuide:
		category := "generale"
		if p := in.product(); p != nil && p.Category != "" {
			category = p.Category
		}
		return done(action.GetSizeGuide, map[string]any{"category": category}, "Ecco la nostra guida alle taglie.")
	case intent.Recommend:
		params := map[string]any{}
		if p := in.product(); p != nil {
			params["product_id"] = p.ID
		}
		return done(action.GetRecommendations, params, "Ho alcuni suggerimenti perfetti per te!")
	case intent.Search:
		if d.Query == "" {
			break
		}
		params := map[string]any{"query": d.Query}
		if err := r.validator.Validate(string(action.SearchProducts), params, in.Text); err != nil {
			r.logger.Warn("fallback search rejected", zap.Error(err))
			break
		}
		events := []action.Event{action.FunctionStart(action.SearchProducts, fmt.Sprintf("Cerco %s...", d.Query))}
		if !wait(ctx, r.cfg.FallbackDelay*2/3) {
			return events
		}
		return append(events, action.FunctionComplete(action.SearchProducts, params,
			fmt.Sprintf("Ho trovato diversi %s che potrebbero interessarti!", d.Query)))
	}
	return []action.Event{action.Response(msgHelp)}
}

// wait sleeps for d unless ctx ends first.
func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func shippingMessage(info catalog.ShippingInfo) string {
	return fmt.Sprintf("La spedizione è gratuita per ordini sopra i %s euro. Altrimenti la standard costa %s euro (%s) e la express %s euro (%s).",
		euro(info.FreeThreshold), euro(info.Standard), info.StandardDays, euro(info.Express), info.ExpressDays)
}

// euro formats an amount the Italian way: 100, 9,90.
func euro(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strings.Replace(strconv.FormatFloat(v, 'f', 2, 64), ".", ",", 1)
}
