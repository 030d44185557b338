// Command departures looks up today's departures from an airport.
package main

import "github.com/derickschaefer/departures/cmd"

func main() {
	cmd.Execute()
}
