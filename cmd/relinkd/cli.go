package main

import "flag"

type cliOptions struct {
	configDir   string
	demo        bool
	showVersion bool
}

func parseFlags() cliOptions {
	var opts cliOptions
	flag.StringVar(&opts.configDir, "config", ".", "directory containing relink.cfg.json")
	flag.BoolVar(&opts.demo, "demo", false, "seed a small demo world with one consist at a depot")
	flag.BoolVar(&opts.showVersion, "version", false, "print version and exit")
	flag.Parse()
	return opts
}
