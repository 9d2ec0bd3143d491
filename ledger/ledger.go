package ledger

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Address identifies an account: a caller, the owner or the room itself.
type Address string

// NoAddress is the zero address.
const NoAddress Address = ""

var ErrInsufficientFunds = errors.New("insufficient funds")
var ErrZeroAddress = errors.New("zero address")
var ErrBalanceOverflow = errors.New("balance overflow")

// NewAddress returns a fresh random account address.
func NewAddress() Address {
	return Address("0x" + strings.ReplaceAll(uuid.NewString(), "-", ""))
}

func (a Address) String() string {
	return string(a)
}

// Msg is the envelope of a single call: who sent it and how much value is attached.
type Msg struct {
	Sender Address `json:"caller" mapstructure:"caller"`
	Value  uint64  `json:"value" mapstructure:"value"`
}

// Receiver is invoked after funds have been moved into the address it is
// registered for. Returning an error fails the transfer.
type Receiver func(from Address, amount uint64) error

type Ledger struct {
	balances  map[Address]uint64
	receivers map[Address]Receiver
}

func New() *Ledger {
	return &Ledger{
		balances:  make(map[Address]uint64),
		receivers: make(map[Address]Receiver),
	}
}

func (l *Ledger) Balance(a Address) uint64 {
	return l.balances[a]
}

// Mint credits an account out of thin air. Used for genesis balances and tests.
func (l *Ledger) Mint(a Address, amount uint64) error {
	if a == NoAddress {
		return ErrZeroAddress
	}
	bal := l.balances[a]
	if bal+amount < bal {
		return fmt.Errorf("mint %d to %s: %w", amount, a, ErrBalanceOverflow)
	}
	l.balances[a] = bal + amount
	return nil
}

func (l *Ledger) RegisterReceiver(a Address, r Receiver) {
	if r == nil {
		delete(l.receivers, a)
		return
	}
	l.receivers[a] = r
}

func (l *Ledger) move(from, to Address, amount uint64) error {
	if to == NoAddress {
		return ErrZeroAddress
	}
	if l.balances[from] < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, from, l.balances[from], amount)
	}
	if amount == 0 || from == to {
		return nil
	}
	if bal := l.balances[to]; bal+amount < bal {
		return fmt.Errorf("%w: crediting %d to %s", ErrBalanceOverflow, amount, to)
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}

// Transfer moves amount from one account to another and then hands control
// to the recipient's Receiver, if any. If the receiver fails the move is
// undone and its error returned.
func (l *Ledger) Transfer(from, to Address, amount uint64) error {
	snap := l.Snapshot()
	if err := l.move(from, to, amount); err != nil {
		return err
	}
	if r, ok := l.receivers[to]; ok {
		if err := r(from, amount); err != nil {
			l.Restore(snap)
			return err
		}
	}
	return nil
}

// Execute runs fn as a call to the account `to`. The attached msg.Value is
// moved from the sender to `to` first, without triggering receivers. If
// anything fails every balance goes back to what it was before the call.
func (l *Ledger) Execute(msg Msg, to Address, fn func() error) error {
	snap := l.Snapshot()
	if err := l.move(msg.Sender, to, msg.Value); err != nil {
		return err
	}
	if err := fn(); err != nil {
		l.Restore(snap)
		return err
	}
	return nil
}

func (l *Ledger) Snapshot() map[Address]uint64 {
	snap := make(map[Address]uint64, len(l.balances))
	for a, b := range l.balances {
		snap[a] = b
	}
	return snap
}

func (l *Ledger) Restore(snap map[Address]uint64) {
	l.balances = make(map[Address]uint64, len(snap))
	for a, b := range snap {
		l.balances[a] = b
	}
}

// Accounts lists every address with a non-zero balance, sorted.
func (l *Ledger) Accounts() []Address {
	var out []Address
	for a, b := range l.balances {
		if b > 0 {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
