package networth

import (
	"context"
	"time"
)

// Engine returns an Engine backed by this Core's rate and price stores and
// the category lists currently on disk, reporting in the current display
// currency.
func (c *Core) Engine() (*Engine, error) {
	return c.engineFor(c.DisplayCurrency())
}

func (c *Core) engineFor(display string) (*Engine, error) {
	cfg, err := c.CategoryConfig()
	if err != nil {
		return nil, err
	}
	return &Engine{
		Rates:            c,
		Prices:           c,
		Categories:       cfg,
		Currencies:       c.currencies,
		DisplayCurrency:  display,
		PivotCurrency:    c.pivotCurrency,
		CheckpointDays:   c.checkpointDays,
		CurrencyResolver: c.resolver,
		Logger:           c.logger,
	}, nil
}

// BuildSeries scans every stored balance and normalizes it as of now in the
// current display currency.
func (c *Core) BuildSeries(ctx context.Context, now time.Time) (*BuildResult, error) {
	return c.BuildSeriesIn(ctx, now, "")
}

// BuildSeriesIn is BuildSeries reporting in display instead. An empty display
// uses the current display currency; anything else must pass
// ValidateDisplayCurrency.
func (c *Core) BuildSeriesIn(ctx context.Context, now time.Time, display string) (*BuildResult, error) {
	if display == "" {
		display = c.DisplayCurrency()
	} else {
		code, err := c.ValidateDisplayCurrency(display)
		if err != nil {
			return nil, err
		}
		display = code
	}
	engine, err := c.engineFor(display)
	if err != nil {
		return nil, err
	}
	records, err := c.ScanBalances(ctx)
	if err != nil {
		return nil, err
	}
	return engine.Build(ctx, records, now)
}

// Convert expresses value, held in from, in to on date using the stored
// rates.
func (c *Core) Convert(ctx context.Context, value Amount, from, to string, date time.Time) (Amount, error) {
	converter := Converter{Rates: c, Pivot: c.pivotCurrency}
	v, err := converter.Convert(ctx, value.Decimal, from, to, Day(date))
	if err != nil {
		return Amount{}, err
	}
	return Amount{v}, nil
}
