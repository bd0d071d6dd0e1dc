package whatsapp

import (
	"testing"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/proto/waWeb"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
)

func TestToMessageEvent(t *testing.T) {
	user := types.NewJID("94711111111", types.DefaultUserServer)
	device := types.NewADJID("94711111111", 0, 3)
	group := types.NewJID("120363000000000000", types.GroupServer)

	tests := []struct {
		name       string
		evt        *events.Message
		wantText   string
		wantLive   bool
		wantStatus bool
		wantGroup  bool
		wantImage  bool
	}{
		{
			name: "conversation",
			evt: &events.Message{
				Info:    types.MessageInfo{MessageSource: types.MessageSource{Chat: user, Sender: device}, ID: "A"},
				Message: &waE2E.Message{Conversation: proto.String("hello")},
			},
			wantText: "hello",
			wantLive: true,
		},
		{
			name: "extended text",
			evt: &events.Message{
				Info:    types.MessageInfo{MessageSource: types.MessageSource{Chat: user, Sender: user}, ID: "B"},
				Message: &waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: proto.String(".ping")}},
			},
			wantText: ".ping",
			wantLive: true,
		},
		{
			name: "image caption",
			evt: &events.Message{
				Info: types.MessageInfo{MessageSource: types.MessageSource{Chat: user, Sender: user}, ID: "C"},
				Message: &waE2E.Message{ImageMessage: &waE2E.ImageMessage{
					Caption:  proto.String(".sticker"),
					Mimetype: proto.String("image/jpeg"),
				}},
			},
			wantText:  ".sticker",
			wantLive:  true,
			wantImage: true,
		},
		{
			name: "button tap",
			evt: &events.Message{
				Info: types.MessageInfo{MessageSource: types.MessageSource{Chat: user, Sender: user}, ID: "D"},
				Message: &waE2E.Message{ButtonsResponseMessage: &waE2E.ButtonsResponseMessage{
					SelectedButtonID: proto.String(".info"),
				}},
			},
			wantText: ".info",
			wantLive: true,
		},
		{
			name: "status",
			evt: &events.Message{
				Info:    types.MessageInfo{MessageSource: types.MessageSource{Chat: types.StatusBroadcastJID, Sender: user}, ID: "E"},
				Message: &waE2E.Message{ImageMessage: &waE2E.ImageMessage{}},
			},
			wantLive:   true,
			wantStatus: true,
			wantImage:  true,
		},
		{
			name: "group",
			evt: &events.Message{
				Info:    types.MessageInfo{MessageSource: types.MessageSource{Chat: group, Sender: user, IsGroup: true}, ID: "F"},
				Message: &waE2E.Message{Conversation: proto.String("hi")},
			},
			wantText:  "hi",
			wantLive:  true,
			wantGroup: true,
		},
		{
			name: "edit",
			evt: &events.Message{
				Info:    types.MessageInfo{MessageSource: types.MessageSource{Chat: user, Sender: user}, ID: "G"},
				Message: &waE2E.Message{Conversation: proto.String("fixed")},
				IsEdit:  true,
			},
			wantText: "fixed",
		},
		{
			name: "history replay",
			evt: &events.Message{
				Info:         types.MessageInfo{MessageSource: types.MessageSource{Chat: user, Sender: user}, ID: "H"},
				Message:      &waE2E.Message{Conversation: proto.String("old")},
				SourceWebMsg: &waWeb.WebMessageInfo{},
			},
			wantText: "old",
		},
		{
			name: "reaction",
			evt: &events.Message{
				Info:    types.MessageInfo{MessageSource: types.MessageSource{Chat: user, Sender: user}, ID: "I"},
				Message: &waE2E.Message{ReactionMessage: &waE2E.ReactionMessage{Text: proto.String("👍")}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToMessageEvent(tt.evt)
			if got.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", got.Text, tt.wantText)
			}
			if got.Live != tt.wantLive {
				t.Errorf("Live = %v, want %v", got.Live, tt.wantLive)
			}
			if got.IsStatus != tt.wantStatus || (tt.wantStatus && !got.IsBroadcast) {
				t.Errorf("IsStatus = %v IsBroadcast = %v", got.IsStatus, got.IsBroadcast)
			}
			if got.IsGroup != tt.wantGroup {
				t.Errorf("IsGroup = %v, want %v", got.IsGroup, tt.wantGroup)
			}
			if (got.Image != nil) != tt.wantImage {
				t.Errorf("Image = %+v, want present=%v", got.Image, tt.wantImage)
			}
			if got.Sender != "94711111111@s.whatsapp.net" {
				t.Errorf("Sender = %q, device suffix should be stripped", got.Sender)
			}
			if got.Ref.ID != string(tt.evt.Info.ID) || got.Ref.Chat != got.Chat {
				t.Errorf("Ref = %+v", got.Ref)
			}
		})
	}
}
