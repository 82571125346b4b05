// Command client is a terminal client for the trivia server.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/wfunc/trivia/network"
)

const retryDelay = 2 * time.Second

// mode is what the next line typed by the user means.
type mode int

const (
	modeName mode = iota
	modeMenu
	modeRoomID
	modeGame
)

type client struct {
	conn net.Conn
	mode mode
}

func (c *client) send(msg network.Message) error {
	frame, err := network.Encode(msg)
	if err != nil {
		return err
	}
	_, err = c.conn.Write(frame)
	return err
}

func main() {
	addr := pflag.StringP("addr", "a", "127.0.0.1:7777", "trivia server address")
	pflag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
		close(lines)
	}()

	for {
		log.Printf("Connecting to %s", *addr)
		conn, err := net.Dial("tcp", *addr)
		if err != nil {
			log.Printf("Dial failed: %v", err)
			fmt.Print("Retry? (y/n): ")
			select {
			case line, ok := <-lines:
				if ok && strings.EqualFold(line, "y") {
					time.Sleep(retryDelay)
					continue
				}
			case <-interrupt:
			}
			return
		}

		c := &client{conn: conn}
		err = c.run(lines, interrupt)
		conn.Close()
		if err != nil {
			log.Printf("Connection lost: %v", err)
		}
		return
	}
}

// run pumps server messages and user input through one select loop until
// either side ends the session.
func (c *client) run(lines <-chan string, interrupt <-chan os.Signal) error {
	incoming := make(chan network.Message)
	readErr := make(chan error, 1)
	go func() {
		frames := network.NewFrameBuffer(0)
		buf := make([]byte, 4096)
		for {
			n, err := c.conn.Read(buf)
			frames.Append(buf[:n])
			for {
				msg, ok, ferr := frames.Next()
				if ferr != nil {
					readErr <- ferr
					return
				}
				if !ok {
					break
				}
				incoming <- msg
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	for {
		select {
		case msg := <-incoming:
			if done := c.show(msg); done {
				return nil
			}
		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				fmt.Println("Server closed the connection.")
				return nil
			}
			return err
		case line, ok := <-lines:
			if !ok {
				return c.send(network.Message{Action: network.ActionDisconnect})
			}
			quit, err := c.input(line)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
		case <-interrupt:
			fmt.Println()
			return c.send(network.Message{Action: network.ActionDisconnect})
		}
	}
}

// show prints msg and updates the input mode. It reports true when the
// session is over.
func (c *client) show(msg network.Message) bool {
	switch msg.Action {
	case network.ActionSetName:
		fmt.Println(msg.Message)
		c.mode = modeName
	case network.ActionGameMenu:
		if msg.Message != "" {
			fmt.Println(msg.Message)
		}
		for _, opt := range msg.Options {
			fmt.Println("  " + opt)
		}
		c.mode = modeMenu
	case network.ActionGameCreated, network.ActionGameJoined:
		c.mode = modeGame
		fmt.Println(msg.Message)
		fmt.Println("Type 'start' to start the game (creator only) or 'leave' to go back.")
	case network.ActionPlayerJoined:
		fmt.Printf("%s joined the game.\n", msg.Player)
	case network.ActionPlayerLeft:
		fmt.Printf("%s left the game.\n", msg.Player)
	case network.ActionNewCreator:
		fmt.Printf("%s is now the game creator.\n", msg.Player)
	case network.ActionQuestion:
		fmt.Printf("\nQ: %s\n   (%s)\n", msg.Question, strings.Join(msg.Options, " / "))
	case network.ActionAnswerFeedback:
		score := 0
		if msg.Score != nil {
			score = *msg.Score
		}
		fmt.Printf("%s Your score: %d\n", msg.Message, score)
	case network.ActionScoreUpdate:
		fmt.Println("Scores:")
		for name, score := range msg.Scores {
			fmt.Printf("  %-16s %d\n", name, score)
		}
	case network.ActionServerShutdown:
		fmt.Println(msg.Message)
		return true
	case network.ActionError:
		fmt.Println("Error:", msg.Message)
	default:
		fmt.Println(msg.Message)
	}
	return false
}

// input turns a typed line into a request. It reports true when the user
// chose to exit.
func (c *client) input(line string) (bool, error) {
	if line == "" {
		return false, nil
	}
	switch c.mode {
	case modeName:
		return false, c.send(network.Message{Action: network.ActionSetName, Name: line})
	case modeRoomID:
		c.mode = modeMenu
		return false, c.send(network.Message{Action: network.ActionJoinGame, RoomID: line})
	case modeGame:
		switch strings.ToLower(line) {
		case "start":
			return false, c.send(network.Message{Action: network.ActionStartGame})
		case "leave":
			return false, c.send(network.Message{Action: network.ActionLeaveGame})
		default:
			return false, c.send(network.Message{Action: network.ActionAnswer, Answer: line})
		}
	}

	switch line {
	case "1":
		return false, c.send(network.Message{Action: network.ActionJoinGame, RoomType: network.RoomTypePublic})
	case "2":
		return false, c.send(network.Message{Action: network.ActionCreateGame, RoomType: network.RoomTypePublic})
	case "3":
		return false, c.send(network.Message{Action: network.ActionCreateGame, RoomType: network.RoomTypePrivate})
	case "4":
		fmt.Print("Enter the game ID: ")
		c.mode = modeRoomID
		return false, nil
	case "5":
		fmt.Println("Goodbye!")
		return true, c.send(network.Message{Action: network.ActionDisconnect})
	default:
		fmt.Println("Please choose an option between 1 and 5.")
		return false, nil
	}
}
