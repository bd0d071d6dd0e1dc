package whatsapp

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.mau.fi/whatsmeow/proto/waCompanionReg"
	wastore "go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"

	. "github.com/Deneth123456789/My-new-bot/internal/logging"
	"github.com/Deneth123456789/My-new-bot/internal/paths"
)

// Store is the persisted device credential store. whatsmeow writes
// credential changes to it as they happen; the bot only loads, lists and
// deletes devices.
type Store struct {
	path      string
	db        *sql.DB
	container *sqlstore.Container
}

// DeviceInfo describes one stored device.
type DeviceInfo struct {
	JID      string
	PushName string
	Platform string
}

// OpenStore opens (creating if needed) the sqlite device store at path.
func OpenStore(ctx context.Context, path string) (*Store, error) {
	if err := paths.EnsureParentDir(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open session db: %w", err)
	}

	container := sqlstore.NewWithDB(db, "sqlite3", newLogger("store"))
	if err := container.Upgrade(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to upgrade session store: %w", err)
	}

	L_debug("whatsapp: session store opened", "path", path)
	return &Store{path: path, db: db, container: container}, nil
}

// SetDeviceName sets how the linked device shows up on the phone.
// It only affects future pairings.
func SetDeviceName(name string) {
	if name == "" {
		return
	}
	wastore.SetOSInfo(name, [3]uint32{1, 0, 0})
	wastore.DeviceProps.PlatformType = waCompanionReg.DeviceProps_CHROME.Enum()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// LoadDevice returns the stored device, or a fresh unpaired one.
func (s *Store) LoadDevice(ctx context.Context) (*wastore.Device, error) {
	device, err := s.container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load device: %w", err)
	}
	if device == nil {
		device = s.container.NewDevice()
	}
	return device, nil
}

// Devices lists the paired devices.
func (s *Store) Devices(ctx context.Context) ([]DeviceInfo, error) {
	devices, err := s.container.GetAllDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	var out []DeviceInfo
	for _, d := range devices {
		info := DeviceInfo{PushName: d.PushName, Platform: d.Platform}
		if d.ID != nil {
			info.JID = d.ID.String()
		}
		out = append(out, info)
	}
	return out, nil
}

// Unlink deletes every stored device so the next run pairs again.
// Returns how many devices were removed.
func (s *Store) Unlink(ctx context.Context) (int, error) {
	devices, err := s.container.GetAllDevices(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list devices: %w", err)
	}
	for i, d := range devices {
		jid := "(unknown)"
		if d.ID != nil {
			jid = d.ID.String()
		}
		if err := d.Delete(ctx); err != nil {
			return i, fmt.Errorf("failed to delete device %s: %w", jid, err)
		}
		L_info("whatsapp: removed device", "jid", jid)
	}
	return len(devices), nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.container.Close()
}
