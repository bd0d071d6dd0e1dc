package whatsapp

import (
	"context"
	"path/filepath"
	"testing"

	"go.mau.fi/whatsmeow/proto/waAdv"
	"go.mau.fi/whatsmeow/types"
)

func TestStoreFreshDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "whatsapp.db")

	st, err := OpenStore(ctx, path)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer st.Close()

	devices, err := st.Devices(ctx)
	if err != nil {
		t.Fatalf("Devices: %v", err)
	}
	if len(devices) != 0 {
		t.Errorf("fresh store has %d devices", len(devices))
	}

	device, err := st.LoadDevice(ctx)
	if err != nil {
		t.Fatalf("LoadDevice: %v", err)
	}
	if device.ID != nil {
		t.Errorf("fresh device should be unpaired, got %v", device.ID)
	}

	n, err := st.Unlink(ctx)
	if err != nil || n != 0 {
		t.Errorf("Unlink = %d, %v", n, err)
	}
}

func TestAddressBookIgnoresPushNames(t *testing.T) {
	ctx := context.Background()
	st, err := OpenStore(ctx, filepath.Join(t.TempDir(), "whatsapp.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer st.Close()

	device, err := st.LoadDevice(ctx)
	if err != nil {
		t.Fatalf("LoadDevice: %v", err)
	}
	self := types.NewJID("94770000001", types.DefaultUserServer)
	device.ID = &self
	device.Account = &waAdv.ADVSignedDeviceIdentity{
		Details:             []byte{1},
		AccountSignature:    make([]byte, 64),
		AccountSignatureKey: make([]byte, 32),
		DeviceSignature:     make([]byte, 64),
	}
	if err := device.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}

	stranger := types.NewJID("94770000002", types.DefaultUserServer)
	friend := types.NewJID("94770000003", types.DefaultUserServer)

	known, err := inAddressBook(ctx, device.Contacts, stranger)
	if err != nil || known {
		t.Fatalf("unseen stranger: known=%v err=%v", known, err)
	}

	// Every incoming message with a push name leaves a contact row behind.
	if _, _, err := device.Contacts.PutPushName(ctx, stranger, "Eve"); err != nil {
		t.Fatalf("PutPushName: %v", err)
	}
	known, err = inAddressBook(ctx, device.Contacts, stranger)
	if err != nil || known {
		t.Errorf("stranger with push name: known=%v err=%v", known, err)
	}

	if err := device.Contacts.PutContactName(ctx, friend, "Kamal Perera", "Kamal"); err != nil {
		t.Fatalf("PutContactName: %v", err)
	}
	known, err = inAddressBook(ctx, device.Contacts, friend)
	if err != nil || !known {
		t.Errorf("address book contact: known=%v err=%v", known, err)
	}
}
