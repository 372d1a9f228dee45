package calculator

import (
	"errors"
	"fmt"
	"math"

	"github.com/mmynk/tabsplit/internal/models"
)

// DefaultTipLabel names the breakdown entry for a tip when TipSpec.Label is empty.
const DefaultTipLabel = "Tip"

// MaxTipAmount bounds TipSpec.Amount in either mode, keeping tip values finite.
const MaxTipAmount = 1e12

// ErrInvalidTip is returned for a tip with an unknown mode or an amount that
// is not finite or exceeds MaxTipAmount.
var ErrInvalidTip = errors.New("invalid tip")

// ValidateTip rejects malformed tips. Degenerate tips are not malformed.
func ValidateTip(tip *models.TipSpec) error {
	if tip == nil {
		return nil
	}
	if math.IsNaN(tip.Amount) || math.IsInf(tip.Amount, 0) {
		return fmt.Errorf("%w: amount must be finite", ErrInvalidTip)
	}
	if tip.Amount > MaxTipAmount {
		return fmt.Errorf("%w: amount must not exceed %g", ErrInvalidTip, float64(MaxTipAmount))
	}
	if !tipApplies(tip) {
		return nil
	}
	switch tip.Mode {
	case models.TipPercentage, models.TipFixed:
		return nil
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidTip, tip.Mode)
	}
}

// TipValue computes the tip amount for a given pre-tip grand total.
// Degenerate tips are worth zero.
func TipValue(grandTotal float64, tip *models.TipSpec) float64 {
	if !tipApplies(tip) {
		return 0
	}
	if tip.Mode == models.TipPercentage {
		return grandTotal * tip.Amount / 100
	}
	return tip.Amount
}

// TipShare is the amount each tip participant pays.
func TipShare(grandTotal float64, tip *models.TipSpec) float64 {
	if !tipApplies(tip) {
		return 0
	}
	return TipValue(grandTotal, tip) / float64(len(uniqueLabels(tip.Participants)))
}

// tipApplies reports whether tip contributes anything.
func tipApplies(tip *models.TipSpec) bool {
	return tip != nil && len(tip.Participants) > 0 && tip.Amount > 0
}

func applyTip(result *Allocation, index map[string]int, tip *models.TipSpec) {
	if !tipApplies(tip) {
		return
	}

	label := tip.Label
	if label == "" {
		label = DefaultTipLabel
	}

	value := TipValue(result.GrandTotal, tip)
	share := TipShare(result.GrandTotal, tip)
	for _, person := range uniqueLabels(tip.Participants) {
		if i, exists := index[person]; exists {
			credit(&result.PerPerson[i], label, share)
		}
	}

	result.TipValue = value
	result.GrandTotal += value
}
