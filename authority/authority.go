// Package authority holds the owner and pause capabilities that gate room
// operations.
package authority

import (
	"errors"

	"github.com/elijahnyp/hotel_room/ledger"
)

var (
	ErrNotOwner  = errors.New("Ownable: caller is not the owner")
	ErrZeroOwner = errors.New("Ownable: new owner is the zero address")
	ErrPaused    = errors.New("Pausable: paused")
	ErrNotPaused = errors.New("Pausable: not paused")
)

type Authority struct {
	owner  ledger.Address
	paused bool
}

func New(owner ledger.Address) *Authority {
	return &Authority{owner: owner}
}

func (a *Authority) Owner() ledger.Address {
	return a.owner
}

func (a *Authority) IsOwner(caller ledger.Address) bool {
	return caller != ledger.NoAddress && caller == a.owner
}

func (a *Authority) Paused() bool {
	return a.paused
}

func (a *Authority) RequireOwner(caller ledger.Address) error {
	if !a.IsOwner(caller) {
		return ErrNotOwner
	}
	return nil
}

func (a *Authority) RequireNotPaused() error {
	if a.paused {
		return ErrPaused
	}
	return nil
}

func (a *Authority) TransferOwnership(caller, newOwner ledger.Address) error {
	if err := a.RequireOwner(caller); err != nil {
		return err
	}
	if newOwner == ledger.NoAddress {
		return ErrZeroOwner
	}
	a.owner = newOwner
	return nil
}

func (a *Authority) Pause(caller ledger.Address) error {
	if err := a.RequireOwner(caller); err != nil {
		return err
	}
	if a.paused {
		return ErrPaused
	}
	a.paused = true
	return nil
}

func (a *Authority) Unpause(caller ledger.Address) error {
	if err := a.RequireOwner(caller); err != nil {
		return err
	}
	if !a.paused {
		return ErrNotPaused
	}
	a.paused = false
	return nil
}

// ForceUnpause clears the flag without any check. The room's Reset uses it
// after doing its own owner check.
func (a *Authority) ForceUnpause() {
	a.paused = false
}

// Restore overwrites both capabilities, used when loading a persisted snapshot.
func (a *Authority) Restore(owner ledger.Address, paused bool) {
	a.owner = owner
	a.paused = paused
}
