// Package ledger implements the balance-mutation operations shared by every
// engine package. Callers are responsible for holding whatever per-user lock
// the Store exposes (store.WithUserLock); these functions perform no
// locking and no I/O themselves, mirroring the original User.lock_balance/
// unlock_balance/add_earnings/deduct_loss operations one-for-one, just
// promoted from inline closures into one place every caller shares.
package ledger

import (
	"github.com/ccmarkets/engine/internal/apperr"
	"github.com/ccmarkets/engine/internal/models"
)

// Lock moves amt from available to locked. Fails if available is short.
func Lock(u *models.User, amt float64) error {
	if amt < 0 {
		return apperr.InvalidInput("lock amount cannot be negative")
	}
	if amt > u.Available {
		return apperr.InsufficientFunds("available balance %.2f is less than %.2f", u.Available, amt)
	}
	u.Available -= amt
	u.Locked += amt
	return nil
}

// Unlock moves amt from locked back to available. Fails if locked is short.
func Unlock(u *models.User, amt float64) error {
	if amt < 0 {
		return apperr.InvalidInput("unlock amount cannot be negative")
	}
	if amt > u.Locked {
		return apperr.InsufficientLocked("locked balance %.2f is less than %.2f", u.Locked, amt)
	}
	u.Available += amt
	u.Locked -= amt
	return nil
}

// Credit adds amt directly to available and records it against totalEarned.
// Used for settlement payouts and oracle rewards.
func Credit(u *models.User, amt float64) error {
	if amt < 0 {
		return apperr.InvalidInput("credit amount cannot be negative")
	}
	u.Available += amt
	u.TotalEarned += amt
	return nil
}

// DebitFromLocked removes amt from locked without returning it to available
// (a slash) and records it against totalLost. Used when a losing position or
// an incorrect oracle report forfeits its stake. If locked is short, it
// forfeits whatever remains rather than failing the settlement outright —
// the same "best effort" clamp the teacher's mock.Store.SettleFunds used.
func DebitFromLocked(u *models.User, amt float64) error {
	if amt < 0 {
		return apperr.InvalidInput("debit amount cannot be negative")
	}
	if amt > u.Locked {
		amt = u.Locked
	}
	u.Locked -= amt
	u.TotalLost += amt
	return nil
}

// ReleaseLocked clears amt from locked with no other side effect: neither
// available nor totalEarned/totalLost move. Used when a winning position's
// collateral is retired after its payout has already been credited
// separately, so the same CC is never counted twice. Clamps to whatever
// remains locked rather than erroring, matching DebitFromLocked's
// best-effort settlement behavior.
func ReleaseLocked(u *models.User, amt float64) error {
	if amt < 0 {
		return apperr.InvalidInput("release amount cannot be negative")
	}
	if amt > u.Locked {
		amt = u.Locked
	}
	u.Locked -= amt
	return nil
}
