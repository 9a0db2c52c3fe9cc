// Command hygroctl is a console for THG-family thermo-hygrometers. It
// speaks the instrument's line protocol over a local serial port or a
// tcp:// serial bridge, with one-shot flags for scripting and an
// interactive prompt for bench work.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	prompt "github.com/c-bata/go-prompt"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	instrument "github.com/Suchanan01-bit/Cal--sub001"
)

const usage = `commands:
  id        probe the identification string
  all       read every channel in one exchange
  t1, t2    read a single temperature channel
  status    session state and exchange counters
  raw CMD   send CMD verbatim, print the raw reply
  help      this text
  quit      disconnect and exit

anything unrecognized is sent to the instrument verbatim.
`

func main() {
	device := flag.String("device", "/dev/ttyUSB0", "serial device path or tcp://host:port")
	baud := flag.Int("baud", instrument.DefaultBaudRate, "baud rate")
	timeout := flag.Duration("timeout", instrument.DefaultReadTimeout, "read timeout per reply")
	list := flag.Bool("list", false, "list candidate serial endpoints and exit")
	cmd := flag.String("cmd", "", "send a single raw command and exit")
	id := flag.Bool("id", false, "print the identification string and exit")
	all := flag.Bool("all", false, "read every channel once and exit")
	t1 := flag.Bool("t1", false, "read temperature channel 1 and exit")
	t2 := flag.Bool("t2", false, "read temperature channel 2 and exit")
	watch := flag.Duration("watch", 0, "poll every channel at this interval until interrupted")
	debug := flag.Bool("debug", false, "log exchanges to stderr")
	flag.Parse()

	if *list {
		listEndpoints()
		return
	}

	logger := zerolog.Nop()
	if *debug {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(zerolog.DebugLevel).With().Timestamp().Logger()
	}

	sess, err := instrument.NewSession(instrument.Config{
		BaudRate:    *baud,
		ReadTimeout: *timeout,
		SettleDelay: instrument.DefaultSettleDelay,
	}, logger)
	if err != nil {
		fatalf("%v", err)
	}

	res := sess.Connect(*device)
	if !res.OK {
		fatalf("connect %s: %s", *device, sess.LastError())
	}
	fmt.Fprintln(os.Stderr, res.Message)
	defer sess.Disconnect()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		sess.Disconnect()
		os.Exit(1)
	}()

	switch {
	case *cmd != "":
		sendRaw(sess, *cmd)
		return
	case *id:
		ident, err := sess.Identity()
		if err != nil {
			fatalf("identify: %v", err)
		}
		fmt.Println(ident)
		return
	case *all:
		m, err := sess.Measurements()
		if err != nil {
			fatalf("read all: %v", err)
		}
		fmt.Println(formatMeasurement(m))
		return
	case *t1, *t2:
		read := sess.Temperature1
		if *t2 {
			read = sess.Temperature2
		}
		v, err := read()
		if err != nil {
			fatalf("read: %v", err)
		}
		fmt.Printf("%.2f\n", v)
		return
	}

	if *watch > 0 {
		runWatch(sess, *watch)
		return
	}

	runPrompt(sess)
}

func listEndpoints() {
	eps, err := instrument.ListEndpoints()
	if err != nil {
		fatalf("list endpoints: %v", err)
	}
	if len(eps) == 0 {
		fmt.Fprintln(os.Stderr, "no serial endpoints found")
		return
	}
	for _, ep := range eps {
		fmt.Printf("%-20s %s\n", ep.Name, ep.Description)
	}
}

func runWatch(sess *instrument.Session, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for range t.C {
		m, err := sess.Measurements()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Printf("%s %s\n", m.Taken.Format(time.RFC3339), formatMeasurement(m))
	}
}

// runPrompt runs the interactive loop: a real prompt with completion on
// a terminal, a plain line reader when stdin is a pipe.
func runPrompt(sess *instrument.Session) {
	exec := newExecutor(sess)
	if isatty.IsTerminal(os.Stdin.Fd()) {
		fmt.Fprint(os.Stderr, usage)
		prompt.New(exec, completer,
			prompt.OptionPrefix("thg> "),
			prompt.OptionTitle("hygroctl"),
		).Run()
		return
	}
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		exec(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "stdin: %v\n", err)
	}
}

var suggests = []prompt.Suggest{
	{Text: "id", Description: "probe identification"},
	{Text: "all", Description: "read every channel"},
	{Text: "t1", Description: "temperature channel 1"},
	{Text: "t2", Description: "temperature channel 2"},
	{Text: "status", Description: "session state and counters"},
	{Text: "raw", Description: "send a command verbatim"},
	{Text: "help", Description: "command help"},
	{Text: "quit", Description: "disconnect and exit"},
}

func completer(d prompt.Document) []prompt.Suggest {
	return prompt.FilterHasPrefix(suggests, d.GetWordBeforeCursor(), true)
}

func newExecutor(sess *instrument.Session) func(string) {
	return func(line string) {
		line = strings.TrimSpace(line)
		if line == "" {
			return
		}
		cmd, rest, _ := strings.Cut(line, " ")
		switch cmd {
		case "quit", "exit":
			sess.Disconnect()
			os.Exit(0)
		case "help":
			fmt.Fprint(os.Stderr, usage)
		case "id":
			ident, err := sess.Identity()
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				return
			}
			fmt.Println(ident)
		case "all":
			m, err := sess.Measurements()
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				return
			}
			fmt.Println(formatMeasurement(m))
		case "t1", "t2":
			read := sess.Temperature1
			if cmd == "t2" {
				read = sess.Temperature2
			}
			v, err := read()
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				return
			}
			fmt.Printf("%.2f\n", v)
		case "status":
			printStatus(sess)
		case "raw":
			rest = strings.TrimSpace(rest)
			if rest == "" {
				fmt.Fprintln(os.Stderr, "raw: missing command")
				return
			}
			sendRaw(sess, rest)
		default:
			sendRaw(sess, line)
		}
	}
}

func sendRaw(sess *instrument.Session, cmd string) {
	reply, err := sess.SendCommand(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	fmt.Println(reply)
}

func printStatus(sess *instrument.Session) {
	snap := sess.MetricsSnapshot()
	fmt.Printf("connected:  %v\n", sess.IsConnected())
	fmt.Printf("endpoint:   %s\n", sess.Endpoint())
	if ident := sess.LastIdentity(); ident != "" {
		fmt.Printf("identity:   %s\n", ident)
	}
	if lastErr := sess.LastError(); lastErr != "" {
		fmt.Printf("last error: %s\n", lastErr)
	}
	fmt.Printf("health:     %s\n", snap.Health(sess.IsConnected()))
	fmt.Printf("commands:   %d sent, %d failed (%.1f%% ok)\n",
		snap.CommandsSent, snap.CommandErrors, snap.CommandSuccessRate())
	fmt.Printf("io:         %d B out, %d B in\n", snap.BytesWritten, snap.BytesRead)
}

func formatMeasurement(m instrument.Measurement) string {
	var b strings.Builder
	app := func(label string, v *float64, unit string) {
		if v == nil {
			return
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%.2f%s", label, *v, unit)
	}
	app("t1", m.Temperature1, "C")
	app("rh", m.Humidity, "%")
	app("t2", m.Temperature2, "C")
	app("dew", m.Dewpoint, "C")
	if b.Len() == 0 {
		return "(no channels)"
	}
	return b.String()
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
