package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/datastore"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/httpclient"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/index"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/search"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/transit"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/util"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const DefaultChecksumTimeout = 10 * time.Second

var ErrNoConnection = errors.New("no connection and no usable cached dataset")

// Manager keeps the dataset snapshot current and owns the stored preferences
type Manager struct {
	Store           datastore.Store
	Fetcher         httpclient.Fetcher
	DataSet         DataSet
	ChecksumTimeout time.Duration
	HasConnection   func(ctx context.Context) bool
	Now             func() time.Time

	snapshot atomic.Pointer[index.Index]

	statusMutex sync.Mutex
	status      Status
	observers   map[int]chan Status
	observerID  int

	preferencesMutex sync.Mutex
	preferences      *transit.Preferences

	refresh singleflight.Group
}

func New(store datastore.Store, fetcher httpclient.Fetcher, dataSet DataSet) *Manager {
	return &Manager{
		Store:           store,
		Fetcher:         fetcher,
		DataSet:         dataSet,
		ChecksumTimeout: DefaultChecksumTimeout,
		status:          Status{State: StateLoading},
		observers:       map[int]chan Status{},
	}
}

func (m *Manager) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

func (m *Manager) hasConnection(ctx context.Context) bool {
	if m.HasConnection == nil {
		return true
	}
	return m.HasConnection(ctx)
}

// Index is the current snapshot, nil until a dataset has been loaded
func (m *Manager) Index() *index.Index {
	return m.snapshot.Load()
}

// Engine binds a search engine to the current snapshot
func (m *Manager) Engine() *search.Engine {
	idx := m.snapshot.Load()
	if idx == nil {
		return nil
	}
	return search.New(idx, m.Now)
}

func (m *Manager) Status() Status {
	m.statusMutex.Lock()
	defer m.statusMutex.Unlock()
	return m.status
}

// Subscribe delivers the latest status whenever it changes. Slow observers only see the most recent value.
func (m *Manager) Subscribe() (<-chan Status, func()) {
	m.statusMutex.Lock()
	defer m.statusMutex.Unlock()

	if m.observers == nil {
		m.observers = map[int]chan Status{}
	}
	m.observerID++
	id := m.observerID
	channel := make(chan Status, 1)
	channel <- m.status
	m.observers[id] = channel

	return channel, func() {
		m.statusMutex.Lock()
		defer m.statusMutex.Unlock()
		if _, exists := m.observers[id]; exists {
			delete(m.observers, id)
			close(channel)
		}
	}
}

func (m *Manager) publish(status Status) {
	m.statusMutex.Lock()
	defer m.statusMutex.Unlock()

	m.status = status
	for _, channel := range m.observers {
		select {
		case <-channel:
		default:
		}
		channel <- status
	}
}

func (m *Manager) setState(state State) {
	m.publish(Status{State: state, Progress: m.Status().Progress})
}

func (m *Manager) setProgress(progress float64) {
	m.publish(Status{State: m.Status().State, Progress: progress})
}

// EnsureDataReady loads the preferences, creating defaults, then checks for a dataset update
func (m *Manager) EnsureDataReady(ctx context.Context, suppressCheck bool) error {
	if m.Status().State == StateReady && m.snapshot.Load() != nil {
		return nil
	}
	if err := m.loadPreferences(ctx); err != nil {
		return err
	}
	return m.CheckUpdate(ctx, suppressCheck)
}

// CheckUpdate brings the snapshot up to date. Concurrent callers share one refresh.
func (m *Manager) CheckUpdate(ctx context.Context, suppressCheck bool) error {
	_, err, shared := m.refresh.Do("checkUpdate", func() (any, error) {
		return nil, m.checkUpdate(ctx, suppressCheck)
	})
	if shared {
		log.Debug().Msg("Joined in-flight dataset refresh")
	}
	return err
}

// CheckUpdateAsync runs CheckUpdate detached from ctx's cancellation
func (m *Manager) CheckUpdateAsync(ctx context.Context, suppressCheck bool) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := m.CheckUpdate(ctx, suppressCheck); err != nil {
			log.Error().Err(err).Msg("Dataset refresh failed")
		}
	}()
}

func (m *Manager) checkUpdate(ctx context.Context, suppressCheck bool) (err error) {
	m.setState(StateLoading)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dataset refresh panicked: %v", r)
		}
		if err != nil {
			m.fail(ctx, err)
		}
	}()

	hasConnection := m.hasConnection(ctx)

	cachedFiles, existsErr := datastore.ExistsAll(ctx, m.Store, datastore.ChecksumFile, datastore.DataFile)
	if existsErr != nil {
		log.Error().Err(existsErr).Msg("Failed to check cached dataset")
		cachedFiles = false
	}

	var checksum string
	updateChecked := false
	if !suppressCheck && hasConnection {
		checksum, updateChecked = m.fetchChecksum(ctx, cachedFiles)
	}

	cached := false
	if cachedFiles {
		if !updateChecked {
			cached = true
		} else if local, err := m.Store.Get(ctx, datastore.ChecksumFile); err == nil && string(local) == checksum {
			cached = true
		}
	}

	if cached {
		if m.snapshot.Load() != nil {
			m.publish(Status{State: StateReady, Progress: 1})
			return nil
		}
		if err := m.loadCachedDataset(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to load cached dataset")
		} else {
			m.publish(Status{State: StateReady, Progress: 1})
			return nil
		}
	}

	if !hasConnection {
		return ErrNoConnection
	}

	return m.update(ctx, checksum, updateChecked)
}

// fetchChecksum races the remote checksum against its own timeout. Any failure means no newer checksum.
func (m *Manager) fetchChecksum(ctx context.Context, announce bool) (string, bool) {
	if announce {
		m.setState(StateUpdateChecking)
	}
	defer func() {
		if m.Status().State == StateUpdateChecking {
			m.setState(StateLoading)
		}
	}()

	timeout := m.ChecksumTimeout
	if timeout <= 0 {
		timeout = DefaultChecksumTimeout
	}
	checksumCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	remote, err := httpclient.GetText(checksumCtx, m.Fetcher, m.DataSet.ChecksumURL())
	if err != nil {
		log.Warn().Err(err).Msg("Could not fetch dataset checksum")
		return "", false
	}
	return m.DataSet.VersionedChecksum(remote), true
}

func (m *Manager) loadCachedDataset(ctx context.Context) error {
	data, err := m.Store.Get(ctx, datastore.DataFile)
	if err != nil {
		return err
	}
	container, err := transit.DecodeDataContainer(data)
	if err != nil {
		return err
	}

	idx := index.Build(container)
	m.snapshot.Store(idx)

	log.Info().Int("routes", idx.RouteCount()).Int("stops", idx.StopCount()).Msg("Loaded cached dataset")
	return nil
}

func (m *Manager) update(ctx context.Context, checksum string, updateChecked bool) error {
	m.publish(Status{State: StateUpdating, Progress: 0})

	offset := 0.0
	if len(m.favourites()) == 0 {
		offset = 0.15
	}

	if !updateChecked {
		checksum, _ = m.fetchChecksum(ctx, false)
	}

	length := int64(-1)
	if sizeText, err := httpclient.GetText(ctx, m.Fetcher, m.DataSet.SizeURL()); err == nil {
		length = int64(util.ParseIntOr(sizeText, -1))
	}

	retry := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	data, err := backoff.RetryWithData(func() ([]byte, error) {
		return m.Fetcher.GetWithProgress(ctx, m.DataSet.DataURL(), length, func(p float64) {
			m.setProgress(p*0.75 + offset)
		})
	}, retry)
	if err != nil {
		return fmt.Errorf("download dataset: %w", err)
	}

	container, err := transit.DecodeDataContainer(data)
	if err != nil {
		return fmt.Errorf("decode dataset: %w", err)
	}
	idx := index.Build(container)
	m.setProgress(0.75 + offset)

	if err := m.Store.Put(ctx, datastore.DataFile, data); err != nil {
		return fmt.Errorf("persist dataset: %w", err)
	}
	m.setProgress(0.825 + offset)

	if err := m.Store.Put(ctx, datastore.ChecksumFile, []byte(checksum)); err != nil {
		return fmt.Errorf("persist checksum: %w", err)
	}
	m.setProgress(0.85 + offset)

	if err := m.repairFavourites(ctx, idx, 0.85+offset); err != nil {
		return fmt.Errorf("repair favourites: %w", err)
	}

	m.snapshot.Store(idx)
	m.publish(Status{State: StateReady, Progress: 1})

	log.Info().Int("routes", idx.RouteCount()).Int("stops", idx.StopCount()).Str("checksum", checksum).Msg("Dataset updated")
	return nil
}

// fail moves to ERROR and forgets the checksum so the next attempt downloads again
func (m *Manager) fail(ctx context.Context, err error) {
	log.Error().Err(err).Msg("Dataset refresh failed")

	if deleteErr := m.Store.Delete(context.WithoutCancel(ctx), datastore.ChecksumFile); deleteErr != nil && !errors.Is(deleteErr, datastore.ErrNotFound) {
		log.Error().Err(deleteErr).Msg("Failed to delete dataset checksum")
	}
	m.publish(Status{State: StateError, Progress: 1})
}
