package infrastructure

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// WhatsAppClient wraps one whatsmeow session. Each tenant instance owns one.
type WhatsAppClient struct {
	Client      *whatsmeow.Client
	HandlerFunc func(evt interface{})

	UserID     int    // Owner user ID for multi-tenancy
	SchemaName string // Tenant schema for data isolation

	qrCode string
	qrLock sync.RWMutex
}

func NewWhatsAppClient(dbPath string) (*WhatsAppClient, error) {
	dbLog := waLog.Stdout("Database", "INFO", true)
	container, err := sqlstore.New(context.Background(), "sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)", dbLog)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to device store: %v", err)
	}

	deviceStore, err := container.GetFirstDevice(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %v", err)
	}

	clientLog := waLog.Stdout("Client", "INFO", true)
	client := whatsmeow.NewClient(deviceStore, clientLog)

	return &WhatsAppClient{
		Client: client,
	}, nil
}

// NewWhatsAppClientWithUser creates a client bound to a tenant.
func NewWhatsAppClientWithUser(dbPath string, userID int, schemaName string) (*WhatsAppClient, error) {
	client, err := NewWhatsAppClient(dbPath)
	if err != nil {
		return nil, err
	}
	client.UserID = userID
	client.SchemaName = schemaName
	return client, nil
}

func (w *WhatsAppClient) Connect() error {
	if w.Client.Store.ID == nil {
		// No ID stored, new login: surface QR codes for the dashboard to poll
		qrChan, _ := w.Client.GetQRChannel(context.Background())
		err := w.Client.Connect()
		if err != nil {
			return err
		}

		go func() {
			for evt := range qrChan {
				if evt.Event == "code" {
					w.qrLock.Lock()
					w.qrCode = evt.Code
					w.qrLock.Unlock()
				}
			}
		}()
		return nil
	}
	return w.Client.Connect()
}

func (w *WhatsAppClient) GetQR() string {
	w.qrLock.RLock()
	defer w.qrLock.RUnlock()
	return w.qrCode
}

func (w *WhatsAppClient) IsLoggedIn() bool {
	return w.Client.Store.ID != nil
}

// GetUserInfo returns connected phone number and push name.
func (w *WhatsAppClient) GetUserInfo() (string, string) {
	if w.Client.Store.ID == nil {
		return "", ""
	}
	return w.Client.Store.ID.User, w.Client.Store.PushName
}

// IsConnected returns true if client is connected and logged in
func (w *WhatsAppClient) IsConnected() bool {
	return w.Client.IsConnected() && w.Client.Store.ID != nil
}

func (w *WhatsAppClient) Logout() error {
	w.qrLock.Lock()
	w.qrCode = ""
	w.qrLock.Unlock()

	err := w.Client.Logout(context.Background())
	if err != nil {
		return err
	}

	// Reconnect to expose a fresh QR for re-pairing
	w.Client.Disconnect()

	qrChan, _ := w.Client.GetQRChannel(context.Background())
	if err := w.Client.Connect(); err != nil {
		return fmt.Errorf("reconnect after logout: %w", err)
	}

	go func() {
		for evt := range qrChan {
			if evt.Event == "code" {
				w.qrLock.Lock()
				w.qrCode = evt.Code
				w.qrLock.Unlock()
			}
		}
	}()

	return nil
}

func (w *WhatsAppClient) Disconnect() {
	w.Client.Disconnect()
}

func (w *WhatsAppClient) AddHandler(handler func(interface{})) {
	w.Client.AddEventHandler(handler)
}

// SendMessage sends a plain text message to a phone number (no JID suffix).
func (w *WhatsAppClient) SendMessage(to string, content string) error {
	jid, err := types.ParseJID(to + "@s.whatsapp.net")
	if err != nil {
		return fmt.Errorf("invalid number format: %v", err)
	}

	_, err = w.Client.SendMessage(context.Background(), jid, &waProto.Message{
		Conversation: &content,
	})

	return err
}

// SendPresence broadcasts availability plus a typing indicator to the contact.
func (w *WhatsAppClient) SendPresence(to string) {
	jid, _ := types.ParseJID(to + "@s.whatsapp.net")
	w.Client.SendPresence(context.Background(), types.PresenceAvailable)
	w.Client.SendChatPresence(context.Background(), jid, types.ChatPresenceComposing, types.ChatPresenceMediaText)
}

// ParseMessage extracts sender phone, push name and text from an inbound event.
func (w *WhatsAppClient) ParseMessage(evt *events.Message) (sender, pushName, content string) {
	sender = strings.TrimSuffix(evt.Info.Sender.User, "@s.whatsapp.net")
	pushName = evt.Info.PushName

	if evt.Message.Conversation != nil {
		content = *evt.Message.Conversation
	} else if evt.Message.ExtendedTextMessage != nil {
		content = *evt.Message.ExtendedTextMessage.Text
	}

	return sender, pushName, content
}
