/*
DESCRIPTION
  mediaprobe is a command line front end for the mp4 demuxer: it parses a
  media file, prints its streams and sample statistics, and optionally
  dumps the per sample index.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/


// Package main provides the mediaprobe command.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ausocean/utils/logging"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/mediaprobe/container/mp4"
)

// Current software version.
const version = "v0.1.0"

// Logging configuration.
const (
	logPath      = "/var/log/mediaprobe/mediaprobe.log"
	logMaxSize   = 100 // MB
	logMaxBackup = 5
	logMaxAge    = 28 // days
	logSuppress  = true
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version")
		dumpSamples = flag.Bool("samples", false, "dump the per sample index")
		logVerbosity = flag.Int("loglevel", int(logging.Info), "log verbosity")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}
	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: mediaprobe [flags] <file>\n")
		os.Exit(2)
	}

	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	log := logging.New(int8(*logVerbosity), io.MultiWriter(fileLog, os.Stderr), logSuppress)

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		log.Log(logging.Fatal, "could not open input file", "error", err.Error())
	}
	defer f.Close()

	d, err := mp4.NewDemuxer(f, log)
	if err != nil {
		log.Log(logging.Fatal, "could not create demuxer", "error", err.Error())
	}
	mf, err := d.Parse()
	if err != nil {
		log.Log(logging.Fatal, "could not parse file", "error", err.Error())
	}

	fmt.Printf("brand: %s, duration: %d us, fragmented: %t\n", mf.Brand, mf.Duration, mf.Fragmented)
	for i, s := range mf.Streams {
		fmt.Printf("stream %d: %s codec=%s track=%d samples=%d sync=%d", i, s.Type, s.Codec, s.TrackID, len(s.Samples), s.SyncCount())
		if s.Framerate.Base != 0 {
			fmt.Printf(" framerate=%.3f", s.Framerate.Float())
		}
		if s.Width != 0 {
			fmt.Printf(" %dx%d", s.Width, s.Height)
		}
		if s.SampleRate != 0 {
			fmt.Printf(" rate=%d ch=%d", s.SampleRate, s.ChannelCount)
		}
		if s.Language != "" {
			fmt.Printf(" lang=%s", s.Language)
		}
		fmt.Println()

		if *dumpSamples {
			for k, smp := range s.Samples {
				fmt.Printf("  %6d off=%-10d size=%-8d dts=%-12d pts=%-12d\n", k, smp.Offset, smp.Size, smp.DTS, smp.PTS)
			}
		}
	}
}
