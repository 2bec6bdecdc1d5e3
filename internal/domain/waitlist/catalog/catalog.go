// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package catalog provides the tenant's service/staff directory that
// notify.Dispatcher needs for templating (a notification names the
// service and the staff member, not just their IDs). Store carries no
// service/staff catalog of its own — slots and entries only reference
// ServiceID/StaffID — so this is a small, separately-seeded directory
// rather than a Store method.
package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/ManuGH/waitlistd/internal/domain/waitlist/model"
)

// Static is an in-memory, process-seeded catalog of a tenant's services
// and staff. It satisfies notify.ServiceLookup and notify.StaffLookup.
type Static struct {
	mu       sync.RWMutex
	services map[string]model.Service // key: tenantID+"/"+serviceID
	staff    map[string]model.Staff   // key: tenantID+"/"+staffID
}

// NewStatic returns an empty catalog; populate it with PutService/PutStaff
// before wiring it into a notify.Dispatcher.
func NewStatic() *Static {
	return &Static{
		services: make(map[string]model.Service),
		staff:    make(map[string]model.Staff),
	}
}

func key(tenantID, id string) string { return tenantID + "/" + id }

// PutService registers (or replaces) a tenant's service entry.
func (c *Static) PutService(svc model.Service) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[key(svc.TenantID, svc.ID)] = svc
}

// PutStaff registers (or replaces) a tenant's staff entry.
func (c *Static) PutStaff(s model.Staff) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staff[key(s.TenantID, s.ID)] = s
}

// ServiceName implements notify.ServiceLookup.
func (c *Static) ServiceName(_ context.Context, tenantID, serviceID string) (string, int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	svc, ok := c.services[key(tenantID, serviceID)]
	if !ok {
		return "", 0, fmt.Errorf("catalog: unknown service %q for tenant %q", serviceID, tenantID)
	}
	return svc.Name, svc.Price, nil
}

// StaffName implements notify.StaffLookup.
func (c *Static) StaffName(_ context.Context, tenantID, staffID string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.staff[key(tenantID, staffID)]
	if !ok {
		return "", fmt.Errorf("catalog: unknown staff %q for tenant %q", staffID, tenantID)
	}
	return s.Name, nil
}
