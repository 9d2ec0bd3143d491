// Package state implements the room: its price, occupancy, prepaid days and
// the funds collected for them.
package state

import (
	"github.com/elijahnyp/hotel_room/authority"
	"github.com/elijahnyp/hotel_room/ledger"
)

// DefaultPrice is 0.1 ether expressed in wei.
const DefaultPrice uint64 = 100_000_000_000_000_000

const (
	OpSetPrice          = "set_price"
	OpSetBooked         = "set_booked"
	OpSetFree           = "set_free"
	OpMakeBooking       = "make_booking"
	OpOpenDoor          = "open_door"
	OpPayout            = "payout"
	OpPause             = "pause"
	OpUnpause           = "unpause"
	OpReset             = "reset"
	OpTransferOwnership = "transfer_ownership"
	OpTransfer          = "transfer"
)

// Snapshot is the externally visible state of a room.
type Snapshot struct {
	Address       ledger.Address `json:"address"`
	Owner         ledger.Address `json:"owner"`
	Price         uint64         `json:"price"`
	DefaultPrice  uint64         `json:"default_price"`
	Available     bool           `json:"available"`
	Booker        ledger.Address `json:"booker"`
	RemainingDays uint64         `json:"remaining_days"`
	Balance       uint64         `json:"balance"`
	Paused        bool           `json:"paused"`
	LastBooker    ledger.Address `json:"last_booker,omitempty"`
}

type fields struct {
	price         uint64
	available     bool
	booker        ledger.Address
	lastBooker    ledger.Address
	remainingDays uint64
	owner         ledger.Address
	paused        bool
}

// Room is not safe for concurrent use. Callers serialize access.
type Room struct {
	self         ledger.Address
	defaultPrice uint64
	ledger       *ledger.Ledger
	auth         *authority.Authority

	price     uint64
	available bool
	// booker is empty while nobody holds a booking
	booker ledger.Address
	// lastBooker is whoever used up the most recent booking
	lastBooker    ledger.Address
	remainingDays uint64
}

// New deploys a room at address self, owned by owner, keeping its funds in l.
// A defaultPrice of 0 means DefaultPrice.
func New(self, owner ledger.Address, defaultPrice uint64, l *ledger.Ledger) *Room {
	if defaultPrice == 0 {
		defaultPrice = DefaultPrice
	}
	r := &Room{
		self:         self,
		defaultPrice: defaultPrice,
		ledger:       l,
		auth:         authority.New(owner),
	}
	r.reinitialize()
	l.RegisterReceiver(self, func(ledger.Address, uint64) error {
		return ErrUnsupported
	})
	return r
}

func (r *Room) reinitialize() {
	r.price = r.defaultPrice
	r.available = true
	r.booker = ledger.NoAddress
	r.lastBooker = ledger.NoAddress
	r.remainingDays = 0
}

func (r *Room) Address() ledger.Address { return r.self }
func (r *Room) Price() uint64           { return r.price }
func (r *Room) DefaultPrice() uint64    { return r.defaultPrice }
func (r *Room) Available() bool         { return r.available }
func (r *Room) RemainingDays() uint64   { return r.remainingDays }
func (r *Room) Balance() uint64         { return r.ledger.Balance(r.self) }
func (r *Room) Owner() ledger.Address   { return r.auth.Owner() }
func (r *Room) Paused() bool            { return r.auth.Paused() }

// Booker reports the current booker, or the room's own address when there is none.
func (r *Room) Booker() ledger.Address {
	if r.booker == ledger.NoAddress {
		return r.self
	}
	return r.booker
}

func (r *Room) Snapshot() Snapshot {
	return Snapshot{
		Address:       r.self,
		Owner:         r.auth.Owner(),
		Price:         r.price,
		DefaultPrice:  r.defaultPrice,
		Available:     r.available,
		Booker:        r.Booker(),
		RemainingDays: r.remainingDays,
		Balance:       r.Balance(),
		Paused:        r.auth.Paused(),
		LastBooker:    r.lastBooker,
	}
}

// Restore loads a previously persisted snapshot. Balances live in the ledger
// and are restored there.
func (r *Room) Restore(s Snapshot) {
	r.price = s.Price
	r.available = s.Available
	r.booker = s.Booker
	if r.booker == r.self {
		r.booker = ledger.NoAddress
	}
	r.lastBooker = s.LastBooker
	r.remainingDays = s.RemainingDays
	r.auth.Restore(s.Owner, s.Paused)
}

func (r *Room) save() fields {
	return fields{
		price:         r.price,
		available:     r.available,
		booker:        r.booker,
		lastBooker:    r.lastBooker,
		remainingDays: r.remainingDays,
		owner:         r.auth.Owner(),
		paused:        r.auth.Paused(),
	}
}

func (r *Room) load(f fields) {
	r.price = f.price
	r.available = f.available
	r.booker = f.booker
	r.lastBooker = f.lastBooker
	r.remainingDays = f.remainingDays
	r.auth.Restore(f.owner, f.paused)
}

// call runs one operation as a transaction: the attached value moves into the
// room first and on any error both the room and the ledger are put back.
func (r *Room) call(op string, msg ledger.Msg, payable bool, body func() error) error {
	if err := r.checkSender(msg.Sender); err != nil {
		return &CallError{Op: op, Caller: msg.Sender, Err: err}
	}
	saved := r.save()
	err := r.ledger.Execute(msg, r.self, func() error {
		if !payable && msg.Value > 0 {
			return ErrNotPayable
		}
		return body()
	})
	if err != nil {
		r.load(saved)
		return &CallError{Op: op, Caller: msg.Sender, Err: err}
	}
	return nil
}

// checkSender refuses calls without a caller and calls the room makes to itself.
func (r *Room) checkSender(sender ledger.Address) error {
	if sender == ledger.NoAddress || sender == r.self {
		return ErrInvalidCaller
	}
	return nil
}

func (r *Room) ownerOnly(msg ledger.Msg, pausable bool, body func() error) func() error {
	return func() error {
		if err := r.auth.RequireOwner(msg.Sender); err != nil {
			return err
		}
		if pausable {
			if err := r.auth.RequireNotPaused(); err != nil {
				return err
			}
		}
		return body()
	}
}

func (r *Room) SetPrice(msg ledger.Msg, price uint64) error {
	return r.call(OpSetPrice, msg, false, r.ownerOnly(msg, false, func() error {
		r.price = price
		return nil
	}))
}

// SetBooked marks the room occupied without touching booker or days.
func (r *Room) SetBooked(msg ledger.Msg) error {
	return r.call(OpSetBooked, msg, false, r.ownerOnly(msg, true, func() error {
		r.available = false
		return nil
	}))
}

// SetFree marks the room available without clearing booker or days. Only
// Reset clears those.
func (r *Room) SetFree(msg ledger.Msg) error {
	return r.call(OpSetFree, msg, false, r.ownerOnly(msg, true, func() error {
		r.available = true
		return nil
	}))
}

// MakeBooking buys msg.Value / price days for the sender. The whole value is
// kept, remainder included.
func (r *Room) MakeBooking(msg ledger.Msg) error {
	return r.call(OpMakeBooking, msg, true, func() error {
		if !r.available {
			return ErrNotFree
		}
		if r.price == 0 {
			return ErrNoPrice
		}
		if msg.Value < r.price {
			return ErrPaymentBelowPrice
		}
		r.remainingDays = msg.Value / r.price
		r.available = false
		r.booker = msg.Sender
		r.lastBooker = ledger.NoAddress
		return nil
	})
}

// OpenDoor consumes one prepaid day. The last day releases the room.
func (r *Room) OpenDoor(msg ledger.Msg) error {
	return r.call(OpOpenDoor, msg, false, func() error {
		if r.booker == ledger.NoAddress || msg.Sender != r.booker {
			if r.booker == ledger.NoAddress && r.lastBooker != ledger.NoAddress && msg.Sender == r.lastBooker {
				return ErrDaysUsedUp
			}
			return ErrNotBooker
		}
		if r.remainingDays == 0 {
			return ErrDaysUsedUp
		}
		r.remainingDays--
		if r.remainingDays == 0 {
			r.available = true
			r.lastBooker = r.booker
			r.booker = ledger.NoAddress
		}
		return nil
	})
}

// Payout sends the room's whole balance to the owner. The room's balance is
// already zero by the time the owner's receiver runs.
func (r *Room) Payout(msg ledger.Msg) error {
	return r.call(OpPayout, msg, false, r.ownerOnly(msg, false, func() error {
		amount := r.ledger.Balance(r.self)
		return r.ledger.Transfer(r.self, r.auth.Owner(), amount)
	}))
}

// Transfer is a bare value transfer to the room. It is always refused.
func (r *Room) Transfer(msg ledger.Msg) error {
	if err := r.checkSender(msg.Sender); err != nil {
		return &CallError{Op: OpTransfer, Caller: msg.Sender, Err: err}
	}
	saved := r.save()
	if err := r.ledger.Transfer(msg.Sender, r.self, msg.Value); err != nil {
		r.load(saved)
		return &CallError{Op: OpTransfer, Caller: msg.Sender, Err: err}
	}
	return nil
}

func (r *Room) Pause(msg ledger.Msg) error {
	return r.call(OpPause, msg, false, func() error {
		return r.auth.Pause(msg.Sender)
	})
}

func (r *Room) Unpause(msg ledger.Msg) error {
	return r.call(OpUnpause, msg, false, func() error {
		return r.auth.Unpause(msg.Sender)
	})
}

// Reset puts the room back to its deployment state and lifts a pause. Funds
// stay where they are.
func (r *Room) Reset(msg ledger.Msg) error {
	return r.call(OpReset, msg, false, r.ownerOnly(msg, false, func() error {
		r.reinitialize()
		r.auth.ForceUnpause()
		return nil
	}))
}

func (r *Room) TransferOwnership(msg ledger.Msg, newOwner ledger.Address) error {
	return r.call(OpTransferOwnership, msg, false, func() error {
		return r.auth.TransferOwnership(msg.Sender, newOwner)
	})
}
