package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/Kardex-api/internal/domain"
)

// KeyLock exclusión mutua por clave (producto|ubicación). Claves distintas
// avanzan en paralelo; mutaciones sobre la misma clave se serializan. La
// espera es acotada: si el lock no se obtiene dentro del timeout se devuelve
// domain.ErrContended y el caller decide si reintenta.
type KeyLock struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
	timeout time.Duration
}

type lockEntry struct {
	sem  chan struct{} // semáforo binario
	refs int           // holders + waiters, para liberar la entrada del mapa
}

// NewKeyLock construye el lock con el timeout de adquisición indicado.
func NewKeyLock(timeout time.Duration) *KeyLock {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &KeyLock{
		entries: make(map[string]*lockEntry),
		timeout: timeout,
	}
}

// LockKey arma la clave canónica de un par (producto, ubicación).
func LockKey(productID, locationID string) string {
	return productID + "|" + locationID
}

// Acquire toma los locks de todas las claves indicadas y devuelve la función
// de liberación. Las claves se ordenan lexicográficamente antes de adquirir:
// dos traslados en direcciones opuestas sobre el mismo producto toman los
// locks en el mismo orden y no pueden interbloquearse.
func (l *KeyLock) Acquire(ctx context.Context, keys ...string) (release func(), err error) {
	sorted := make([]string, len(keys))
	copy(sorted, keys)
	sort.Strings(sorted)

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	held := make([]string, 0, len(sorted))
	releaseHeld := func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.release(held[i])
		}
	}

	for _, key := range sorted {
		if err := l.acquireOne(ctx, key, timer.C); err != nil {
			releaseHeld()
			return nil, err
		}
		held = append(held, key)
	}

	var once sync.Once
	return func() { once.Do(releaseHeld) }, nil
}

func (l *KeyLock) acquireOne(ctx context.Context, key string, deadline <-chan time.Time) error {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &lockEntry{sem: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
		return nil
	case <-deadline:
		l.drop(key, e)
		return domain.ErrContended
	case <-ctx.Done():
		l.drop(key, e)
		return domain.ErrContended
	}
}

func (l *KeyLock) release(key string) {
	l.mu.Lock()
	e, ok := l.entries[key]
	l.mu.Unlock()
	if !ok {
		return
	}
	<-e.sem
	l.drop(key, e)
}

// drop decrementa la referencia y borra la entrada cuando nadie la usa.
func (l *KeyLock) drop(key string, e *lockEntry) {
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
	l.mu.Unlock()
}
