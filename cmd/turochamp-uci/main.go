package main

import (
	"flag"
	"os"
	"os/signal"

	"github.com/rs/zerolog"

	"github.com/matrogers/turochamp/internal/config"
	"github.com/matrogers/turochamp/internal/engine"
	"github.com/matrogers/turochamp/internal/game"
	"github.com/matrogers/turochamp/internal/record"
	"github.com/matrogers/turochamp/internal/storage"
	"github.com/matrogers/turochamp/internal/uci"
)

var engineFlag = flag.String("engine", "", "backend to play with (turochamp, shannon, bare, newt, rmove, adapt)")

func main() {
	flag.Parse()

	// Accept the backend as a bare trailing argument too, the way GUI
	// configs usually pass it.
	name := *engineFlag
	if name == "" && flag.NArg() > 0 {
		name = flag.Arg(0)
	}

	// Startup diagnostics go to stderr; stdout belongs to the protocol.
	errlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg := config.Load()

	// A nil store is fine: every operation on it is a no-op, so the
	// adapter runs without persistence when the database will not open.
	store, err := storage.Open(cfg.DataDir)
	if err != nil {
		errlog.Warn().Err(err).Msg("persistence disabled")
		store = nil
	}
	defer store.Close()

	eng, err := engine.New(name, store)
	if err != nil {
		errlog.Fatal().Err(err).Msg("select engine")
	}
	if c, ok := eng.(engine.Closer); ok {
		defer c.Close()
	}

	// Reapply the options saved from the last session with this backend.
	if saved, err := store.LoadOptions(eng.Name()); err == nil {
		for opt, val := range saved {
			if err := eng.SetOption(opt, val); err != nil {
				errlog.Warn().Err(err).Str("option", opt).Msg("saved option rejected")
			}
		}
	}

	protoLog, logFile, err := record.NewLogger(cfg.LogEnabled, cfg.LogFile, eng.Name())
	if err != nil {
		errlog.Warn().Err(err).Msg("protocol log disabled")
	}
	if logFile != nil {
		defer logFile.Close()
	}
	pgn := record.NewPGNWriter(cfg.PGNEnabled, cfg.PGNFile, eng.Name())

	// XBoard interrupts the engine process to get its attention; that
	// must not kill us.
	signal.Ignore(os.Interrupt)

	sess := game.NewSession()
	d := uci.New(eng, sess, store, pgn, protoLog, os.Stdin, os.Stdout)
	if err := d.Run(); err != nil {
		errlog.Error().Err(err).Msg("input loop failed")
		os.Exit(1)
	}
}
