package tricktable

import (
	"errors"
	"sync"

	"github.com/golang/glog"
	"github.com/google/uuid"
)

var (
	ErrRegistryTableNotFound  = errors.New("registry: table not found")
	ErrRegistryTableExists    = errors.New("registry: table already exists")
	ErrRegistryUnknownConnect = errors.New("registry: unknown connection")
)

// TableRegistry owns table engine lifecycles by table id and keeps the
// connection-to-participant mapping the transport layer needs across
// reconnects. Engines never see connection identity; they only know the
// opaque participant id resolved here.
type TableRegistry struct {
	mu          sync.RWMutex
	engines     map[string]TableEngine
	engineOpts  []TableEngineOpt
	connections map[string]string // connection id -> participant id
}

func NewTableRegistry(engineOpts ...TableEngineOpt) *TableRegistry {
	return &TableRegistry{
		engines:     make(map[string]TableEngine),
		engineOpts:  engineOpts,
		connections: make(map[string]string),
	}
}

// CreateTable creates an engine for the setting. An empty table id gets a
// generated one.
func (r *TableRegistry) CreateTable(setting TableSetting) (TableEngine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if setting.TableID == "" {
		setting.TableID = uuid.New().String()
	}
	if _, exists := r.engines[setting.TableID]; exists {
		return nil, ErrRegistryTableExists
	}

	engine := NewTableEngine(r.engineOpts...)
	if _, err := engine.CreateTable(setting); err != nil {
		return nil, err
	}

	r.engines[setting.TableID] = engine
	glog.V(1).Infof("registry: created table %s", setting.TableID)
	return engine, nil
}

func (r *TableRegistry) GetTable(tableID string) (TableEngine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	engine, ok := r.engines[tableID]
	if !ok {
		return nil, ErrRegistryTableNotFound
	}
	return engine, nil
}

// RemoveTable closes the engine and forgets the table.
func (r *TableRegistry) RemoveTable(tableID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	engine, ok := r.engines[tableID]
	if !ok {
		return ErrRegistryTableNotFound
	}

	if err := engine.CloseTable(); err != nil {
		glog.Warningf("registry: closing table %s: %v", tableID, err)
	}
	delete(r.engines, tableID)
	glog.V(1).Infof("registry: removed table %s", tableID)
	return nil
}

// Tables returns a snapshot of the live table aggregates, for lobby
// listings.
func (r *TableRegistry) Tables() []*Table {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tables := make([]*Table, 0, len(r.engines))
	for _, engine := range r.engines {
		if t := engine.GetTable(); t != nil {
			tables = append(tables, t)
		}
	}
	return tables
}

// BindConnection maps a live connection to a participant. Rebinding on
// reconnect simply overwrites the previous connection's entry.
func (r *TableRegistry) BindConnection(connectionID, participantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for conn, pid := range r.connections {
		if pid == participantID && conn != connectionID {
			delete(r.connections, conn)
		}
	}
	r.connections[connectionID] = participantID
}

func (r *TableRegistry) ResolveConnection(connectionID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	participantID, ok := r.connections[connectionID]
	if !ok {
		return "", ErrRegistryUnknownConnect
	}
	return participantID, nil
}

// UnbindConnection drops the mapping and reports which participant was
// bound, so the transport can route the disconnect to the right tables.
func (r *TableRegistry) UnbindConnection(connectionID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	participantID, ok := r.connections[connectionID]
	if ok {
		delete(r.connections, connectionID)
	}
	return participantID, ok
}
