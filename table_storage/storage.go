package table_storage

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/d-protocol/timebank"
	"github.com/golang/glog"
	"github.com/tecbot/gorocksdb"

	"github.com/koratgame/tricktable"
)

var ErrTableNotFound = errors.New("table_storage: table not found")

const DefaultDebounceInterval = 100 * time.Millisecond

// TableStore persists table snapshots by table id. Saves are debounced per
// table: the snapshot is serialized at call time (the engine invokes the
// save hook right after a mutation commits, while the state is quiescent)
// and only the latest pending snapshot hits the disk when the window
// closes. Persistence is never a precondition for play; failures are logged
// and the table stays authoritative in memory.
type TableStore struct {
	db *gorocksdb.DB
	wo *gorocksdb.WriteOptions
	ro *gorocksdb.ReadOptions

	debounce time.Duration

	mu      sync.Mutex
	pending map[string][]byte
	timers  map[string]*timebank.TimeBank
	closed  bool
}

func NewTableStore(path string) (*TableStore, error) {
	opts := gorocksdb.NewDefaultOptions()
	opts.SetCreateIfMissing(true)

	db, err := gorocksdb.OpenDb(opts, path)
	if err != nil {
		return nil, err
	}

	return &TableStore{
		db:       db,
		wo:       gorocksdb.NewDefaultWriteOptions(),
		ro:       gorocksdb.NewDefaultReadOptions(),
		debounce: DefaultDebounceInterval,
		pending:  make(map[string][]byte),
		timers:   make(map[string]*timebank.TimeBank),
	}, nil
}

// Save schedules an upsert of the table snapshot. Rapid mutations within
// the debounce window coalesce into a single write.
func (s *TableStore) Save(table *tricktable.Table) {
	data, err := json.Marshal(table)
	if err != nil {
		glog.Errorf("table_storage: failed to serialize table %s: %v", table.ID, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.pending[table.ID] = data

	tb, ok := s.timers[table.ID]
	if !ok {
		tb = timebank.NewTimeBank()
		s.timers[table.ID] = tb
	} else {
		tb.Cancel()
	}

	tableID := table.ID
	if err := tb.NewTask(s.debounce, func(isCancelled bool) {
		if isCancelled {
			return
		}
		s.flush(tableID)
	}); err != nil {
		glog.Errorf("table_storage: failed to schedule save for table %s: %v", tableID, err)
	}
}

func (s *TableStore) flush(tableID string) {
	s.mu.Lock()
	data, ok := s.pending[tableID]
	if ok {
		delete(s.pending, tableID)
	}
	closed := s.closed
	s.mu.Unlock()

	if !ok || closed {
		return
	}

	if err := s.db.Put(s.wo, []byte(tableID), data); err != nil {
		glog.Errorf("table_storage: failed to save table %s: %v", tableID, err)
		return
	}
	glog.V(2).Infof("table_storage: table %s saved", tableID)
}

// Load reads one table snapshot.
func (s *TableStore) Load(tableID string) (*tricktable.Table, error) {
	slice, err := s.db.Get(s.ro, []byte(tableID))
	if err != nil {
		return nil, err
	}
	defer slice.Free()

	if !slice.Exists() {
		return nil, ErrTableNotFound
	}

	var table tricktable.Table
	if err := json.Unmarshal(slice.Data(), &table); err != nil {
		return nil, err
	}
	return &table, nil
}

// LoadAll reads every stored table snapshot, for restoring a registry at
// startup.
func (s *TableStore) LoadAll() ([]*tricktable.Table, error) {
	it := s.db.NewIterator(s.ro)
	defer it.Close()

	tables := make([]*tricktable.Table, 0)
	for it.SeekToFirst(); it.Valid(); it.Next() {
		key := it.Key()
		value := it.Value()

		var table tricktable.Table
		if err := json.Unmarshal(value.Data(), &table); err != nil {
			glog.Warningf("table_storage: skipping corrupt snapshot %s: %v", string(key.Data()), err)
		} else {
			tables = append(tables, &table)
		}

		key.Free()
		value.Free()
	}

	if err := it.Err(); err != nil {
		return nil, err
	}
	return tables, nil
}

// Delete removes a table snapshot, including any pending save.
func (s *TableStore) Delete(tableID string) error {
	s.mu.Lock()
	delete(s.pending, tableID)
	if tb, ok := s.timers[tableID]; ok {
		tb.Cancel()
		delete(s.timers, tableID)
	}
	s.mu.Unlock()

	return s.db.Delete(s.wo, []byte(tableID))
}

// Close flushes pending snapshots and releases the database.
func (s *TableStore) Close() {
	s.mu.Lock()
	for _, tb := range s.timers {
		tb.Cancel()
	}
	pending := s.pending
	s.pending = make(map[string][]byte)
	s.closed = true
	s.mu.Unlock()

	for tableID, data := range pending {
		if err := s.db.Put(s.wo, []byte(tableID), data); err != nil {
			glog.Errorf("table_storage: failed to flush table %s on close: %v", tableID, err)
		}
	}

	s.db.Close()
}
