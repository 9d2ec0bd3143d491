package state

import (
	"errors"
	"fmt"

	"github.com/elijahnyp/hotel_room/authority"
	"github.com/elijahnyp/hotel_room/ledger"
)

var (
	ErrNotFree           = errors.New("room not free")
	ErrNoPrice           = errors.New("room has no price set")
	ErrPaymentBelowPrice = errors.New("payment below price")
	ErrNotBooker         = errors.New("caller is not the booker")
	ErrDaysUsedUp        = errors.New("all booked days are used up")
	ErrUnsupported       = errors.New("unsupported")
	ErrNotPayable        = errors.New("operation does not accept payment")
	ErrInvalidCaller     = errors.New("invalid caller")
)

type Kind int

const (
	KindNone Kind = iota
	KindAuthorization
	KindPrecondition
	KindExhausted
	KindRejected
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindAuthorization:
		return "authorization"
	case KindPrecondition:
		return "precondition"
	case KindExhausted:
		return "exhausted"
	case KindRejected:
		return "rejected"
	default:
		return "internal"
	}
}

// CallError is returned by every failed room operation. Nothing the call
// touched has been kept.
type CallError struct {
	Op     string
	Caller ledger.Address
	Err    error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s by %s: %v", e.Op, e.Caller, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// Reason is the bare reason string of a failed call, without op and caller.
func Reason(err error) string {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Err.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, authority.ErrNotOwner), errors.Is(err, ErrNotBooker):
		return KindAuthorization
	case errors.Is(err, ErrDaysUsedUp):
		return KindExhausted
	case errors.Is(err, ErrUnsupported), errors.Is(err, ErrNotPayable), errors.Is(err, ErrInvalidCaller):
		return KindRejected
	case errors.Is(err, ErrNotFree), errors.Is(err, ErrNoPrice),
		errors.Is(err, ErrPaymentBelowPrice), errors.Is(err, authority.ErrPaused),
		errors.Is(err, authority.ErrNotPaused), errors.Is(err, authority.ErrZeroOwner),
		errors.Is(err, ledger.ErrInsufficientFunds), errors.Is(err, ledger.ErrZeroAddress),
		errors.Is(err, ledger.ErrBalanceOverflow):
		return KindPrecondition
	default:
		return KindInternal
	}
}
