package global

import (
	"github.com/Overclock-Validator/rewardpool/pkg/features"
)

// GlobalCtx carries state shared by every transaction in a slot.
type GlobalCtx struct {
	Features *features.Features
}
