package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/studydeck/studydeck/internal/testenv"
)

func main() {
	var showHelp bool
	flag.BoolVar(&showHelp, "h", false, "show help")
	var envFilename string
	flag.StringVar(&envFilename, "f", "", "path to the .env file")
	var withAuthorizer bool
	flag.BoolVar(&withAuthorizer, "a", false, "also start an Authorizer container")
	flag.Parse()

	usage := `
Run the StudyDeck backing containers for local development.

Usage:

testcontainers [-h] [-a] [-f ENV_FILE_PATH]

-a: also start an Authorizer container
ENV_FILE_PATH: path to the .env file

example
  testcontainers -a -f /path/to/something/.env
`
	if showHelp {
		fmt.Println(usage)
		return
	}

	if envFilename != "" {
		log.Printf("Loading environment variables from %s\n", envFilename)
		if err := godotenv.Load(envFilename); err != nil {
			log.Fatalf("Failed to load environment variables: %v\n", err)
		}
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGTSTP, syscall.SIGQUIT)

	var stack *testenv.Stack
	go func() {
		var err error
		stack, err = testenv.StartDatabase(nil)
		if err != nil {
			log.Fatalf("Failed to start database container: %v\n", err)
		}
		log.Printf("DB_HOST=%s DB_PORT=%s DB_DATABASE=%s DB_USER=%s",
			stack.DBHost, stack.DBPort, testenv.AppDatabase, testenv.AppUser)

		if withAuthorizer {
			url, err := stack.StartAuthorizer(nil)
			if err != nil {
				log.Fatalf("Failed to start Authorizer container: %v\n", err)
			}
			log.Printf("AUTHZ_URL=%s", url)
		}
	}()

	sig := <-sigs
	log.Printf("\nReceived signal: %v, terminating containers...\n", sig)
	if stack != nil {
		stack.Terminate(nil)
	}
}
