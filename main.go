// Command schema-engine manages versioned database schema migrations.
package main

import "github.com/aqasim81/database-schema-engine/internal/cli"

func main() {
	cli.Execute()
}
