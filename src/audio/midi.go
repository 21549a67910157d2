package audio

import (
	"context"
	"log"

	"gitlab.com/gomidi/rtmididrv"
)

// ListenToMidiIn streams raw messages from the first MIDI input until ctx is done.
// The channel is closed when listening stops.
func ListenToMidiIn(ctx context.Context) <-chan []byte {
	ch := make(chan []byte, 65536)
	go func() {
		defer close(ch)
		drv, err := rtmididrv.New()
		if err != nil {
			log.Printf("failed to initialize MIDI driver: %v\n", err)
			return
		}
		defer func() {
			err := drv.Close()
			if err != nil {
				log.Printf("failed to close MIDI driver: %v\n", err)
			}
		}()
		ins, err := drv.Ins()
		if err != nil {
			log.Printf("failed to get MIDI IN: %v\n", err)
			return
		}
		log.Printf("MIDI IN: %v\n", ins)

		if len(ins) == 0 {
			log.Println("[WARN] MIDI IN not found")
			return
		}
		in := ins[0]
		if err := in.Open(); err != nil {
			log.Printf("failed to open MIDI IN: %v\n", err)
			return
		}
		log.Println("opened " + in.String())
		defer func() {
			err := in.Close()
			if err != nil {
				log.Printf("failed to close MIDI IN: %v\n", err)
			}
		}()
		if err := in.SetListener(func(data []byte, deltaMicroseconds int64) {
			msg := make([]byte, len(data))
			copy(msg, data)
			select {
			case ch <- msg:
			default:
				log.Println("[WARN] MIDI IN buffer full, message dropped")
			}
		}); err != nil {
			log.Println("failed to set listener: " + err.Error())
			return
		}
		defer func() {
			log.Println("stop listening MIDI IN...")
			err := in.StopListening()
			if err != nil {
				log.Printf("failed to stop listening: %v\n", err)
			}
		}()
		<-ctx.Done()
	}()
	return ch
}

// ----- Note Message ----- //

// NoteMessage is a note-on or note-off taken from a raw channel message.
type NoteMessage struct {
	On       bool
	Note     int
	Velocity int // 0-127
}

// ParseNoteMessage picks note-on/note-off out of a raw message. Note-on with
// zero velocity counts as note-off. Everything else is ignored.
func ParseNoteMessage(data []byte) (NoteMessage, bool) {
	if len(data) < 3 {
		return NoteMessage{}, false
	}
	status := data[0] >> 4
	note := int(data[1] & 0x7f)
	velocity := int(data[2] & 0x7f)
	if status == 8 || status == 9 && velocity == 0 {
		return NoteMessage{On: false, Note: note, Velocity: velocity}, true
	}
	if status == 9 {
		return NoteMessage{On: true, Note: note, Velocity: velocity}, true
	}
	return NoteMessage{}, false
}
