package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/elijahnyp/hotel_room/ledger"
	"github.com/elijahnyp/hotel_room/state"
	"github.com/elijahnyp/hotel_room/store"
	. "github.com/elijahnyp/hotel_room/util"
)

var ErrUnknownOperation = errors.New("unknown operation")

// Command is the body of a call, whichever transport it came in on.
type Command struct {
	Caller   ledger.Address `json:"caller"`
	Value    uint64         `json:"value,omitempty"`
	Amount   uint64         `json:"amount,omitempty"`
	NewOwner ledger.Address `json:"new_owner,omitempty"`
}

func (c Command) msg() ledger.Msg {
	return ledger.Msg{Sender: c.Caller, Value: c.Value}
}

type CallResult struct {
	Operation string         `json:"operation"`
	Caller    ledger.Address `json:"caller"`
	Ok        bool           `json:"ok"`
	Error     string         `json:"error,omitempty"`
	Kind      string         `json:"kind,omitempty"`
	Room      state.Snapshot `json:"room"`
}

// RoomService is the execution substrate around the room: it serializes
// calls from every transport, persists state after each success and fans
// results out to listeners.
type RoomService struct {
	mu        sync.Mutex
	room      *state.Room
	ledger    *ledger.Ledger
	store     store.Store
	model     Room
	listeners []func(CallResult)
	// addressGenerated is set when no room address was configured
	addressGenerated bool
}

// NewRoomService deploys a fresh room from the model. st may be nil.
func NewRoomService(model Room, st store.Store) (*RoomService, error) {
	addr := ledger.Address(model.Address)
	generated := addr == ledger.NoAddress
	if generated {
		addr = ledger.NewAddress()
		Logger.Warn().Msgf("room %s has no address configured, using %s", model.Name, addr)
	}
	owner := ledger.Address(model.Owner)
	if owner == ledger.NoAddress {
		return nil, fmt.Errorf("room %s has no owner configured", model.Name)
	}
	if owner == addr {
		return nil, fmt.Errorf("room %s cannot own itself", model.Name)
	}

	l := ledger.New()
	for account, amount := range model.Genesis {
		if err := l.Mint(ledger.Address(account), amount); err != nil {
			return nil, fmt.Errorf("genesis balance for %s: %w", account, err)
		}
	}
	model.Address = string(addr)

	return &RoomService{
		room:   state.New(addr, owner, model.Default_price, l),
		ledger: l,
		store:  st,
		model:  model,

		addressGenerated: generated,
	}, nil
}

// Restore replaces the freshly deployed state with the last saved one, if any.
func (s *RoomService) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	rec, err := s.store.Load(ctx)
	if errors.Is(err, store.ErrNotFound) {
		Logger.Info().Msg("no saved room state, starting fresh")
		return nil
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.Room.Address != s.room.Address() {
		if !s.addressGenerated || rec.Room.Address == ledger.NoAddress {
			return fmt.Errorf("saved state belongs to room %s, not %s", rec.Room.Address, s.room.Address())
		}
		// no address configured: keep the one the room was deployed with
		Logger.Info().Msgf("room %s resumes at saved address %s", s.model.Name, rec.Room.Address)
		s.ledger.RegisterReceiver(s.room.Address(), nil)
		s.room = state.New(rec.Room.Address, rec.Room.Owner, s.model.Default_price, s.ledger)
		s.model.Address = string(rec.Room.Address)
		s.addressGenerated = false
	}
	s.ledger.Restore(rec.Balances)
	s.room.Restore(rec.Room)
	Logger.Info().Msgf("restored room %s: available=%v remaining_days=%d balance=%d",
		rec.Room.Address, rec.Room.Available, rec.Room.RemainingDays, s.room.Balance())
	return nil
}

func (s *RoomService) OnResult(listener func(CallResult)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
}

func (s *RoomService) Model() Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

func (s *RoomService) Snapshot() state.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room.Snapshot()
}

func (s *RoomService) Balance(a ledger.Address) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Balance(a)
}

// Accounts lists every funded account, sorted by address.
func (s *RoomService) Accounts() []AccountBalance {
	s.mu.Lock()
	defer s.mu.Unlock()
	accounts := s.ledger.Accounts()
	out := make([]AccountBalance, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, AccountBalance{Address: a, Balance: s.ledger.Balance(a)})
	}
	return out
}

func (s *RoomService) call(op string, cmd Command) error {
	msg := cmd.msg()
	switch op {
	case state.OpSetPrice:
		return s.room.SetPrice(msg, cmd.Amount)
	case state.OpSetBooked:
		return s.room.SetBooked(msg)
	case state.OpSetFree:
		return s.room.SetFree(msg)
	case state.OpMakeBooking:
		return s.room.MakeBooking(msg)
	case state.OpOpenDoor:
		return s.room.OpenDoor(msg)
	case state.OpPayout:
		return s.room.Payout(msg)
	case state.OpPause:
		return s.room.Pause(msg)
	case state.OpUnpause:
		return s.room.Unpause(msg)
	case state.OpReset:
		return s.room.Reset(msg)
	case state.OpTransferOwnership:
		return s.room.TransferOwnership(msg, cmd.NewOwner)
	case state.OpTransfer:
		return s.room.Transfer(msg)
	}
	return fmt.Errorf("%w: %q", ErrUnknownOperation, op)
}

// Dispatch runs one call to completion. The returned error is the call's own
// failure; the result describes it either way.
func (s *RoomService) Dispatch(ctx context.Context, op string, cmd Command) (CallResult, error) {
	log := CallLogger(op, cmd.Caller.String())

	s.mu.Lock()
	err := s.call(op, cmd)
	res := CallResult{
		Operation: op,
		Caller:    cmd.Caller,
		Ok:        err == nil,
		Room:      s.room.Snapshot(),
	}
	if err != nil {
		res.Error = state.Reason(err)
		res.Kind = state.KindOf(err).String()
	} else if s.store != nil {
		rec := store.Record{Room: res.Room, Balances: s.ledger.Snapshot()}
		if serr := s.store.Save(ctx, rec); serr != nil {
			log.Error().Err(serr).Msg("unable to persist room state")
		}
	}
	listeners := append([]func(CallResult){}, s.listeners...)
	s.mu.Unlock()

	if err != nil {
		log.Info().Str("kind", res.Kind).Msgf("call rejected: %s", res.Error)
	} else {
		log.Debug().Msgf("call ok: available=%v remaining_days=%d balance=%d",
			res.Room.Available, res.Room.RemainingDays, res.Room.Balance)
	}
	for _, listener := range listeners {
		listener(res)
	}
	return res, err
}
