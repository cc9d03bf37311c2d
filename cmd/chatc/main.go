// Command chatc is a minimal terminal client for the chat relay: it sends
// the handshake, prints every server line, and forwards stdin lines as-is.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/tberthier/lanchat/pkg/protocol"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:6464", "server address")
	user := flag.String("user", "", "username")
	pass := flag.String("pass", "", "password")
	flag.Parse()

	if *user == "" || *pass == "" {
		fmt.Fprintln(os.Stderr, "usage: chatc -addr host:port -user name -pass secret")
		os.Exit(2)
	}

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = conn.Close() }()

	if _, err := fmt.Fprintf(conn, "%s:%s\n", *user, *pass); err != nil {
		fmt.Fprintf(os.Stderr, "handshake: %v\n", err)
		os.Exit(1)
	}

	serverLines := bufio.NewScanner(conn)
	if !serverLines.Scan() {
		fmt.Fprintln(os.Stderr, "server closed the connection")
		os.Exit(1)
	}
	reply := serverLines.Text()
	if strings.HasPrefix(reply, protocol.AuthFailedPrefix) {
		fmt.Fprintf(os.Stderr, "authentication refused: %s\n",
			strings.TrimPrefix(reply, protocol.AuthFailedPrefix))
		os.Exit(1)
	}
	fmt.Printf("connected as %s (send /quit to leave, /msg <user> <text> for private)\n", *user)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for serverLines.Scan() {
			fmt.Println(serverLines.Text())
		}
	}()

	go func() {
		stdin := bufio.NewScanner(os.Stdin)
		for stdin.Scan() {
			if _, err := fmt.Fprintf(conn, "%s\n", stdin.Text()); err != nil {
				return
			}
			if protocol.IsQuit(stdin.Text()) {
				return
			}
		}
		// stdin closed; leave gracefully
		_, _ = fmt.Fprintf(conn, "%s\n", protocol.QuitCommand)
	}()

	<-done
}
