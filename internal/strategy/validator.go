package strategy

import (
	"fmt"

	"github.com/TalariManohar018/papertrade/internal/condition"
	"github.com/TalariManohar018/papertrade/internal/core"
)

// NSE cash-market session bounds, used for window warnings.
var (
	marketOpen  = core.TimeOfDay{Hour: 9, Minute: 15}
	marketClose = core.TimeOfDay{Hour: 15, Minute: 30}
)

// ValidationResult carries errors and advisory warnings for a strategy
// definition. Errors block creation and activation; warnings do not.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// Validate checks a definition for structural completeness. It does not
// consult market data or account state.
func Validate(def Definition) ValidationResult {
	var errs, warns []string

	if def.Name == "" {
		errs = append(errs, "name is required")
	}
	if def.Symbol == "" {
		errs = append(errs, "symbol is required")
	}
	if def.Quantity <= 0 {
		errs = append(errs, fmt.Sprintf("quantity must be positive, got %d", def.Quantity))
	}
	switch def.Side {
	case core.SideLong, core.SideShort:
	default:
		errs = append(errs, fmt.Sprintf("side must be LONG or SHORT, got %q", def.Side))
	}
	switch def.OrderType {
	case "", core.OrderTypeMarket, core.OrderTypeLimit:
	default:
		errs = append(errs, fmt.Sprintf("unknown order type %q", def.OrderType))
	}

	entry := condition.Validate(def.EntryConditions)
	for _, e := range entry.Errors {
		errs = append(errs, "entry: "+e)
	}
	for _, w := range entry.Warnings {
		warns = append(warns, "entry: "+w)
	}

	if len(def.ExitConditions) == 0 {
		if def.Risk.StopLossPct <= 0 && def.Risk.TakeProfitPct <= 0 && (def.SquareOff == core.TimeOfDay{}) {
			warns = append(warns, "no exit conditions, stop-loss, take-profit, or square-off: positions only close on deactivation")
		}
	} else {
		exit := condition.Validate(def.ExitConditions)
		for _, e := range exit.Errors {
			errs = append(errs, "exit: "+e)
		}
		for _, w := range exit.Warnings {
			warns = append(warns, "exit: "+w)
		}
	}

	if def.Risk.StopLossPct < 0 || def.Risk.TakeProfitPct < 0 {
		errs = append(errs, "stop-loss and take-profit percents cannot be negative")
	}
	if def.Risk.StopLossPct >= 100 {
		errs = append(errs, fmt.Sprintf("stop-loss percent %g must be below 100", def.Risk.StopLossPct))
	}
	if def.MaxTradesPerDay < 0 {
		errs = append(errs, fmt.Sprintf("max trades per day cannot be negative, got %d", def.MaxTradesPerDay))
	}

	if def.HasWindow() && def.WindowEnd.Minutes() <= def.WindowStart.Minutes() {
		errs = append(errs, fmt.Sprintf("trading window end %s must be after start %s",
			def.WindowEnd, def.WindowStart))
	}
	if def.HasWindow() && def.WindowEnd.Minutes() > def.WindowStart.Minutes() &&
		(def.WindowStart.Minutes() < marketOpen.Minutes() || def.WindowEnd.Minutes() > marketClose.Minutes()) {
		warns = append(warns, fmt.Sprintf("trading window %s-%s extends outside market hours %s-%s",
			def.WindowStart, def.WindowEnd, marketOpen, marketClose))
	}
	if (def.SquareOff != core.TimeOfDay{}) && def.HasWindow() &&
		def.SquareOff.Minutes() < def.WindowEnd.Minutes() {
		warns = append(warns, fmt.Sprintf("square-off %s is before window end %s: entries after it close on the next candle",
			def.SquareOff, def.WindowEnd))
	}

	return ValidationResult{
		Valid:    len(errs) == 0,
		Errors:   errs,
		Warnings: warns,
	}
}
