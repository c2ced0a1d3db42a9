package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"symbollist-observer/src/dictionary"
	"symbollist-observer/src/handler"
	"symbollist-observer/src/logger"
	"symbollist-observer/src/models"
	"symbollist-observer/src/session"
)

// captureLine is one line of a capture file: the item the response belongs to
// and the response itself.
type captureLine struct {
	Item    string                   `json:"item"`
	Message *models.MResponseMessage `json:"message"`
}

func main() {
	capturePath := flag.String("capture", "", "JSON-lines capture to replay (default stdin)")
	service := flag.String("service", "ELEKTRON_DD", "service name")
	fieldPath := flag.String("fields", "", "RDMFieldDictionary path")
	enumPath := flag.String("enums", "", "enumtype.def path")
	asJSON := flag.Bool("json", false, "print records as JSON")
	logLevel := flag.String("log-level", "WARNING", "log level")
	flag.Parse()

	if err := logger.Init(*logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logger: %v\n", err)
		os.Exit(1)
	}
	appLogger := logger.NewLogger(nil, "Replay")

	dict := dictionary.New()
	if *fieldPath != "" {
		var err error
		if dict, err = dictionary.Load(*fieldPath, *enumPath, appLogger); err != nil {
			appLogger.Critical("Failed to load dictionary: %v", err)
		}
	}

	in := io.Reader(os.Stdin)
	if *capturePath != "" {
		f, err := os.Open(*capturePath)
		if err != nil {
			appLogger.Critical("Failed to open capture: %v", err)
		}
		defer f.Close()
		in = f
	}

	sess := session.NewLoopbackSession()
	queue := make(chan models.MEvent, 1)
	h := handler.NewSymbolListHandler(sess, queue, dict, *service, nil, logger.NewLogger(nil, "SymbolListHandler"))

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	stats, err := replay(in, sess, h, queue, func(r models.DecodedRecord) error {
		if *asJSON {
			b, err := r.MarshalJSON()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, string(b))
			return err
		}
		_, err := fmt.Fprintln(out, r.String())
		return err
	})
	if err != nil {
		appLogger.Error("Replay stopped: %v", err)
	}
	appLogger.Info("Replayed %d messages into %d records; %d skipped", stats.messages, stats.records, stats.skipped)
}

type replayStats struct {
	messages int
	records  int
	skipped  int
}

// replay feeds every captured response through the handler. Items are
// requested the first time they appear.
func replay(
	in io.Reader,
	sess *session.LoopbackSession,
	h *handler.SymbolListHandler,
	queue chan models.MEvent,
	emit func(models.DecodedRecord) error,
) (replayStats, error) {
	var stats replayStats
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var c captureLine
		if err := json.Unmarshal([]byte(line), &c); err != nil || c.Message == nil {
			stats.skipped++
			continue
		}
		item := c.Item
		if item == "" {
			item = c.Message.Name
		}
		if item == "" {
			stats.skipped++
			continue
		}

		if _, ok := sess.HandleFor(item); !ok {
			if err := h.SendRequest(item); err != nil {
				return stats, fmt.Errorf("line %d: request %s: %w", lineNo, item, err)
			}
		}
		if err := sess.DeliverTo(item, c.Message); err != nil {
			stats.skipped++
			continue
		}

		ev := <-queue
		stats.messages++
		for _, r := range h.ProcessResponse(ev.Message, ev.Handle) {
			stats.records++
			if err := emit(r); err != nil {
				return stats, err
			}
		}
	}
	return stats, scanner.Err()
}
