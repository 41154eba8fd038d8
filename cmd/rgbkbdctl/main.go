// Command rgbkbdctl is a line-oriented test/debug client: it connects
// to one device's control socket and forwards each line read from
// stdin (or a file) verbatim, the way kissutil.go's main loop reads
// from stdin or a transmit-from directory and hands each line to
// process_input.
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"

	"github.com/spf13/pflag"
)

func main() {
	var (
		hostname  = pflag.StringP("hostname", "h", "localhost", "Hostname of the rgbkbdd control socket.")
		port      = pflag.IntP("port", "p", 8801, "TCP port of the device's control socket.")
		inputFile = pflag.StringP("input", "i", "", "Read lines from this file instead of stdin.")
		verbose   = pflag.BoolP("verbose", "v", false, "Echo each line as it is sent.")
		help      = pflag.Bool("help", false, "Display help text.")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - send command lines to a device's control socket.\n\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	conn, err := net.Dial("tcp", fmt.Sprintf("%s:%d", *hostname, *port))
	if err != nil {
		fmt.Fprintf(os.Stderr, "rgbkbdctl: connect %s:%d: %s\n", *hostname, *port, err)
		os.Exit(1)
	}
	defer conn.Close()

	in := os.Stdin
	if *inputFile != "" {
		f, err := os.Open(*inputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "rgbkbdctl: open %s: %s\n", *inputFile, err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		if *verbose {
			fmt.Println(line)
		}
		if _, err := fmt.Fprintln(conn, line); err != nil {
			fmt.Fprintf(os.Stderr, "rgbkbdctl: write: %s\n", err)
			os.Exit(1)
		}
	}
}
