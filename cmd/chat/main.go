// Command chat is a headless peer: it announces an identity to the
// relay, negotiates a data channel with one remote user and bridges it
// to stdin/stdout.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/avelose/scraplink/internal/client"
	"github.com/avelose/scraplink/internal/domain"
)

func main() {
	url := flag.String("url", "ws://localhost:8080/api/ws/signal", "relay websocket URL")
	user := flag.String("user", "", "local user id")
	peer := flag.String("peer", "", "remote user id")
	call := flag.Bool("call", false, "initiate the call instead of waiting")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if *user == "" || *peer == "" {
		log.Fatal().Msg("-user and -peer are required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sig, err := client.Dial(ctx, *url, domain.UserID(*user))
	if err != nil {
		log.Fatal().Err(err).Msg("dial relay")
	}
	defer sig.Close()

	p := client.NewPeer(sig, domain.UserID(*user), domain.UserID(*peer))
	p.OnChat(func(text string) {
		fmt.Printf("%s> %s\n", *peer, text)
	})
	p.OnUnreachable(func() {
		log.Warn().Str("peer", *peer).Msg("peer unreachable")
	})

	if *call {
		if err := p.Call(); err != nil {
			log.Fatal().Err(err).Msg("call failed")
		}
	}

	go func() {
		for {
			env, err := sig.Read()
			if err != nil {
				log.Error().Err(err).Msg("signaling closed")
				cancel()
				return
			}
			p.HandleEnvelope(env)
		}
	}()

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			if err := p.SendChat(line); err != nil {
				log.Warn().Err(err).Msg("chat not delivered")
			}
		}
	}()

	<-ctx.Done()
	p.Hangup()
}
