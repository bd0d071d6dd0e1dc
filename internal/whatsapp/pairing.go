package whatsapp

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	"golang.org/x/term"

	. "github.com/Deneth123456789/My-new-bot/internal/logging"
	"github.com/Deneth123456789/My-new-bot/internal/transport"
)

// PairingCode is emitted while the device is unpaired. Code is the QR
// payload to scan from the phone's Linked Devices screen.
type PairingCode struct {
	Code    string
	Timeout time.Duration
}

// PairingFailed is emitted when the QR flow ends without pairing.
type PairingFailed struct {
	Reason string
}

// PrintPairingCode renders code as a QR block on w when stdout is a
// terminal, otherwise prints the raw payload.
func PrintPairingCode(w io.Writer, code string) {
	fmt.Fprintln(w, "Scan this QR code with WhatsApp (Settings > Linked Devices > Link a Device):")
	if term.IsTerminal(int(os.Stdout.Fd())) {
		qrterminal.GenerateHalfBlock(code, qrterminal.L, w)
		return
	}
	fmt.Fprintln(w, code)
}

// NewDialer returns a Dialer that builds whatsmeow clients over st.
func NewDialer(st *Store, permitMode string) Dialer {
	return func(ctx context.Context, handler func(evt any)) (Conn, error) {
		device, err := st.LoadDevice(ctx)
		if err != nil {
			return nil, err
		}
		wa := whatsmeow.NewClient(device, newLogger("client"))
		wa.EnableAutoReconnect = false
		wa.AddEventHandler(handler)
		return &waConn{
			ctx:     ctx,
			wa:      wa,
			client:  NewClient(wa, permitMode),
			handler: handler,
		}, nil
	}
}

type waConn struct {
	ctx     context.Context
	wa      *whatsmeow.Client
	client  *Client
	handler func(evt any)
}

func (c *waConn) Transport() transport.Transport { return c.client }

func (c *waConn) Connect() error {
	if c.wa.Store.ID == nil {
		qrChan, err := c.wa.GetQRChannel(c.ctx)
		if err != nil {
			return fmt.Errorf("failed to get QR channel: %w", err)
		}
		go c.forwardQR(qrChan)
	}
	return c.wa.Connect()
}

func (c *waConn) forwardQR(qrChan <-chan whatsmeow.QRChannelItem) {
	for item := range qrChan {
		switch item.Event {
		case "code":
			c.handler(&PairingCode{Code: item.Code, Timeout: item.Timeout})
		case "success":
			L_info("whatsapp: pairing successful")
		default:
			reason := item.Event
			if item.Error != nil {
				reason = fmt.Sprintf("%s: %v", item.Event, item.Error)
			}
			c.handler(&PairingFailed{Reason: reason})
		}
	}
}

func (c *waConn) Close() {
	c.wa.Disconnect()
}
