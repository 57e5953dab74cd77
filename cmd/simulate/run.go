package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"negotiation-agent/internal/application"
	"negotiation-agent/internal/config"
	"negotiation-agent/internal/domain/model"
	"negotiation-agent/internal/infra/db/memory"
	"negotiation-agent/internal/infra/logging"
	"negotiation-agent/internal/negotiation"
	"negotiation-agent/internal/usecase"
)

type options struct {
	configPath string
	dev        bool
	reference  string
	title      string
	listed     int64
	category   string
	target     int64
	max        int64
	approach   string
	script     string
	echo       bool // print seller lines read from a script
}

func run(ctx context.Context, opts options, in io.Reader, out io.Writer) error {
	cfg, err := config.LoadConfig(opts.configPath, opts.dev)
	if err != nil {
		return err
	}
	if !opts.dev {
		cfg.Log.Level = "warn"
	}
	logger := logging.NewWithWriter(os.Stderr, cfg.Log, cfg.Runtime.Dev)

	approach, err := model.ParseApproach(opts.approach)
	if err != nil {
		return err
	}
	aiAdapter, err := application.NewAIAdapter(ctx, cfg.AI, logger)
	if err != nil {
		return err
	}
	decisions := memory.NewDecisionLogRepo()
	engine, err := application.NewEngine(cfg, application.EngineDeps{AI: aiAdapter, Decisions: decisions, Logger: logger})
	if err != nil {
		return err
	}
	catalog, err := application.NewCatalog(cfg.Negotiation, engine.Categories, logger)
	if err != nil {
		return err
	}
	uc := usecase.NewNegotiationUseCase(usecase.Deps{
		Sessions:     memory.NewSessionRepo(),
		DecisionLog:  decisions,
		Catalog:      catalog,
		Orchestrator: engine.Orchestrator,
		Renderer:     engine.Renderer,
		Handoff:      engine.Handoff,
		Logger:       logger,
	}, usecase.Options{MaxMessages: cfg.Negotiation.MaxMessages, Dev: cfg.Runtime.Dev})

	req := usecase.StartRequest{
		UserID:    "simulator",
		Reference: opts.reference,
		Params:    model.UserParameters{TargetPrice: opts.target, MaxBudget: opts.max, Approach: approach},
	}
	if opts.title != "" {
		req.Product = &model.Product{Title: opts.title, ListedPrice: opts.listed, Category: opts.category, Platform: "simulator"}
	}
	res, err := uc.Start(ctx, req)
	if err != nil {
		return err
	}

	p := res.Session.Product
	price := func(v int64) string { return negotiation.FormatPrice(cfg.Negotiation.Currency, v) }
	fmt.Fprintf(out, "Product: %s (%s), listed at %s, verified=%t\n", p.Title, p.Category, price(p.ListedPrice), p.Verified)
	fmt.Fprintf(out, "Target %s, budget %s, approach %s\n\n", price(opts.target), price(opts.max), approach)
	printTurn(out, res, price)

	scanner := bufio.NewScanner(in)
	for res.Session.Status == model.SessionActive {
		fmt.Fprint(out, "seller> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Fprintln(out)
			continue
		}
		if opts.echo {
			fmt.Fprintln(out, line)
		}
		res, err = uc.HandleSellerMessage(ctx, res.Session.ID, line)
		if err != nil {
			return err
		}
		printTurn(out, res, price)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	s := res.Session
	fmt.Fprintf(out, "\nstatus=%s outcome=%s", s.Status, orNone(string(s.Outcome)))
	if s.FinalPrice != nil {
		fmt.Fprintf(out, " final=%s", price(*s.FinalPrice))
	}
	if s.HandoffReason != "" {
		fmt.Fprintf(out, " handoff=%s", s.HandoffReason)
	}
	fmt.Fprintf(out, " messages=%d\n", len(s.Messages))
	return nil
}

func printTurn(out io.Writer, res *usecase.TurnResult, price func(int64) string) {
	fmt.Fprintf(out, "buyer> %s\n", res.Reply)
	d := res.Decision
	if d == nil {
		fmt.Fprintf(out, "       [handoff %s]\n", res.Handoff)
		return
	}
	offer := "-"
	if d.PriceOffer != nil {
		offer = price(*d.PriceOffer)
	}
	tactics := make([]string, 0, len(d.Tactics))
	for _, t := range d.Tactics {
		tactics = append(tactics, string(t))
	}
	fmt.Fprintf(out, "       [%s %s offer=%s phase=%s confidence=%.2f tactics=%s]\n",
		d.Source, d.Action, offer, res.Session.Phase, d.Confidence, strings.Join(tactics, ","))
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
