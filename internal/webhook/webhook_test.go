package webhook

import (
	"context"
	"sync"
)

type fakeAccounts struct {
	mu        sync.Mutex
	registers []string
	activated []string
	statuses  map[string]string
	err       error
}

func (f *fakeAccounts) Register(_ context.Context, userID, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	for _, u := range f.registers {
		if u == userID+"|"+email {
			return false, nil
		}
	}
	f.registers = append(f.registers, userID+"|"+email)
	return true, nil
}

func (f *fakeAccounts) Activate(_ context.Context, userID, customerID, pkg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.activated = append(f.activated, userID+"|"+customerID+"|"+pkg)
	return nil
}

func (f *fakeAccounts) SetCustomerStatus(_ context.Context, customerID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.statuses == nil {
		f.statuses = map[string]string{}
	}
	f.statuses[customerID] = status
	return nil
}
