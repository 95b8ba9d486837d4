package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/prudhvinik1/equiptrack/internal/utils"
)

// hashpassword prints a bcrypt hash suitable for AUTH_PASSWORD_HASH.
func main() {
	password := flag.String("password", "", "plain password (read from stdin when empty)")
	flag.Parse()

	plain := *password
	if strings.TrimSpace(plain) == "" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			log.Fatal("use -password or pipe the password on stdin")
		}
		plain = strings.TrimRight(line, "\r\n")
	}
	if strings.TrimSpace(plain) == "" {
		log.Fatal("password must not be empty")
	}

	hash, err := utils.HashPassword(plain)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	fmt.Println(hash)
}
