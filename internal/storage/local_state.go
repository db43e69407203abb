// Package storage сохраняет состояние диффов мира локально, чтобы клиент
// продолжал играть офлайн и восстанавливался после перезапуска.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	syncpkg "sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/klauspost/compress/gzip"

	"github.com/annel0/mmo-client/internal/sync"
)

// Ключи BadgerDB
var (
	keyDiffState = []byte("map/diffstate")
	keyPortals   = []byte("map/portals")
)

// LocalState — локальное хранилище состояния мира на BadgerDB.
// Значения сериализуются в JSON и сжимаются gzip.
type LocalState struct {
	db      *badger.DB
	mu      syncpkg.RWMutex
	isReady bool
}

// Open открывает локальное хранилище в каталоге dataPath
func Open(dataPath string) (*LocalState, error) {
	dbPath := filepath.Join(dataPath, "client")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	return &LocalState{db: db, isReady: true}, nil
}

// Close закрывает хранилище
func (ls *LocalState) Close() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if !ls.isReady {
		return nil
	}
	ls.isReady = false
	return ls.db.Close()
}

// SaveDiffState сохраняет сериализованное состояние диффов
func (ls *LocalState) SaveDiffState(ps sync.PersistedState) error {
	return ls.saveJSON(keyDiffState, ps)
}

// LoadDiffState загружает состояние диффов.
// Если сохранения нет, возвращает found=false без ошибки.
func (ls *LocalState) LoadDiffState() (sync.PersistedState, bool, error) {
	var ps sync.PersistedState
	found, err := ls.loadJSON(keyDiffState, &ps)
	return ps, found, err
}

// SavePortals сохраняет снимок порталов
func (ls *LocalState) SavePortals(portals map[string]string) error {
	return ls.saveJSON(keyPortals, portals)
}

// LoadPortals загружает снимок порталов
func (ls *LocalState) LoadPortals() (map[string]string, bool, error) {
	portals := make(map[string]string)
	found, err := ls.loadJSON(keyPortals, &portals)
	return portals, found, err
}

// saveJSON сериализует значение в JSON, сжимает и записывает по ключу
func (ls *LocalState) saveJSON(key []byte, value interface{}) error {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	if !ls.isReady {
		return fmt.Errorf("хранилище не готово")
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("ошибка сериализации: %w", err)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(raw); err != nil {
		return fmt.Errorf("ошибка сжатия: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("ошибка сжатия: %w", err)
	}

	return ls.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, buf.Bytes())
	})
}

// loadJSON читает значение по ключу, распаковывает и десериализует
func (ls *LocalState) loadJSON(key []byte, target interface{}) (bool, error) {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	if !ls.isReady {
		return false, fmt.Errorf("хранилище не готово")
	}

	var compressed []byte
	err := ls.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		compressed, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ошибка чтения: %w", err)
	}

	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return false, fmt.Errorf("ошибка распаковки: %w", err)
	}
	defer gz.Close()

	raw, err := io.ReadAll(gz)
	if err != nil {
		return false, fmt.Errorf("ошибка распаковки: %w", err)
	}

	if err := json.Unmarshal(raw, target); err != nil {
		return false, fmt.Errorf("ошибка десериализации: %w", err)
	}
	return true, nil
}
