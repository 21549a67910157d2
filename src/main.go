package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/url"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/jinjor/polysynth/src/audio"
	"github.com/jinjor/polysynth/src/synth"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "engine config file (.json or .yml)")
	sockFileName := flag.String("sock", "/tmp/polysynth.sock", "unix socket to receive commands on")
	useMidi := flag.Bool("midi", false, "play notes from the first MIDI input")
	flag.Parse()
	log.SetFlags(log.Lshortfile)
	log.Printf("NumCPU: %v\n", runtime.NumCPU())

	cfg := synth.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = synth.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("error: %v\n", err)
		}
	}

	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	engine := synth.NewEngine(cfg, nil)
	if err := engine.Initialize(); err != nil {
		log.Fatalf("error: %v\n", err)
	}
	defer func() {
		if err := engine.Dispose(); err != nil {
			log.Printf("error while disposing engine: %v", err)
		}
	}()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	defer func() {
		signal.Stop(signalCh)
		cancel()
	}()
	go func() {
		sig := <-signalCh
		log.Printf("Caught signal %s: shutting down...\n", sig)
		cancel()
	}()
	keys := newKeyboard(engine)
	err := withIPCConnection(ctx, *sockFileName, func(conn net.Conn) error {
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return receiveCommands(ctx, conn, keys)
		})
		g.Go(func() error {
			return sendReports(ctx, conn, engine)
		})
		if *useMidi {
			g.Go(func() error {
				return receiveMidi(ctx, audio.ListenToMidiIn(ctx), keys)
			})
		}
		return g.Wait()
	})
	if err != nil {
		log.Printf("error: %v\n", err)
	}
	log.Println("main() ended.")
}

func withIPCConnection(ctx context.Context, sockFileName string, f func(net.Conn) error) error {
	os.Remove(sockFileName)
	listener, err := new(net.ListenConfig).Listen(ctx, "unix", sockFileName)
	if err != nil {
		return err
	}
	defer func() {
		log.Println("Closing IPC...")
		err := listener.Close()
		if err != nil {
			log.Printf("error while closing listener: %v", err)
		}
		os.Remove(sockFileName)
	}()
	go func() {
		<-ctx.Done()
		listener.Close()
	}()
	log.Printf("start listening on %s...\n", sockFileName)
	conn, err := listener.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer func() {
		err := conn.Close()
		if err != nil {
			log.Printf("error while closing connection: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	return f(conn)
}

// ----- Keyboard ----- //

// keyboard remembers which voice each held key started, so note-off
// releases the right one.
type keyboard struct {
	mu     sync.Mutex
	engine *synth.Engine
	held   map[int]*synth.Voice
}

func newKeyboard(engine *synth.Engine) *keyboard {
	return &keyboard{
		engine: engine,
		held:   make(map[int]*synth.Voice),
	}
}

func (k *keyboard) noteOn(pitch int, velocity float64) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	v, err := k.engine.Trigger(pitch, velocity)
	if err != nil {
		return err
	}
	k.held[pitch] = v
	return nil
}

func (k *keyboard) noteOff(pitch int) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if v, ok := k.held[pitch]; ok {
		k.engine.Release(v)
		delete(k.held, pitch)
	}
}

// ----- Commands ----- //

func receiveCommands(ctx context.Context, conn net.Conn, keys *keyboard) error {
	reader := bufio.NewReader(conn)
	var line []byte
loop:
	for {
		select {
		case <-ctx.Done():
			log.Println("Connection interrupted")
			break loop
		default:
		}
		next, isPrefix, err := reader.ReadLine()
		if err == io.EOF {
			break loop
		}
		if err != nil {
			if ctx.Err() != nil {
				break loop
			}
			return err
		}
		line = append(line, next...)
		if isPrefix {
			continue
		}
		command, err := parseCommand(string(line))
		line = []byte{}
		if err != nil {
			log.Printf("invalid command: %v\n", err)
			continue
		}
		if err := update(keys, command); err != nil {
			log.Printf("command %v failed: %v\n", command, err)
		}
	}
	log.Println("receiveCommands() ended.")
	return nil
}

func parseCommand(line string) ([]string, error) {
	lineStr := strings.Split(strings.TrimSpace(line), " ")
	for i, item := range lineStr {
		escaped, err := url.QueryUnescape(item)
		if err != nil {
			return nil, err
		}
		lineStr[i] = escaped
	}
	return lineStr, nil
}

func update(keys *keyboard, command []string) error {
	engine := keys.engine
	switch command[0] {
	case "note_on":
		if len(command) < 2 {
			return fmt.Errorf("note_on needs a pitch")
		}
		pitch, err := strconv.ParseInt(command[1], 10, 32)
		if err != nil {
			return err
		}
		velocity := 1.0
		if len(command) >= 3 {
			velocity, err = strconv.ParseFloat(command[2], 64)
			if err != nil {
				return err
			}
		}
		return keys.noteOn(int(pitch), velocity)
	case "note_off":
		if len(command) < 2 {
			return fmt.Errorf("note_off needs a pitch")
		}
		pitch, err := strconv.ParseInt(command[1], 10, 32)
		if err != nil {
			return err
		}
		keys.noteOff(int(pitch))
	case "volume":
		if len(command) < 2 {
			return fmt.Errorf("volume needs a level")
		}
		level, err := strconv.ParseFloat(command[1], 64)
		if err != nil {
			return err
		}
		return engine.SetVolume(level)
	case "release_all":
		engine.ReleaseAll()
	case "suspend":
		return engine.Suspend()
	case "resume":
		return engine.Resume()
	case "":
	default:
		return fmt.Errorf("unknown command %v", command[0])
	}
	return nil
}

// ----- MIDI ----- //

func receiveMidi(ctx context.Context, midiCh <-chan []byte, keys *keyboard) error {
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case data, ok := <-midiCh:
			if !ok {
				break loop
			}
			msg, ok := audio.ParseNoteMessage(data)
			if !ok {
				continue
			}
			if msg.On {
				if err := keys.noteOn(msg.Note, float64(msg.Velocity)/127); err != nil {
					log.Printf("note-on %d failed: %v\n", msg.Note, err)
				}
			} else {
				keys.noteOff(msg.Note)
			}
		}
	}
	log.Println("receiveMidi() ended.")
	return nil
}

// ----- Reports ----- //

func sendReports(ctx context.Context, conn net.Conn, engine *synth.Engine) error {
	t := time.NewTicker(time.Second / 60)
	defer t.Stop()
loop:
	for {
		select {
		case <-ctx.Done():
			log.Println("sendReports() interrupted")
			break loop
		case <-t.C:
			s := "voices " + strconv.Itoa(engine.ActiveVoiceCount()) +
				" peak " + strconv.FormatFloat(engine.Peak(), 'f', 6, 64)
			if _, err := conn.Write([]byte(s + "\n")); err != nil {
				if ctx.Err() != nil {
					break loop
				}
				return err
			}
		}
	}
	log.Println("sendReports() ended.")
	return nil
}
