package protocol

import "strconv"

// Command is the 4-byte code that opens every exchange.
type Command int32

const (
	Put             Command = 0
	Get             Command = 1
	Read            Command = 2
	GetNonBlocking  Command = 3
	ReadNonBlocking Command = 4
	Dump            Command = 5
	Count           Command = 6
	Log             Command = 7
	Replace         Command = 8
)

var commandNames = map[Command]string{
	Put:             "put",
	Get:             "get",
	Read:            "read",
	GetNonBlocking:  "get_nb",
	ReadNonBlocking: "read_nb",
	Dump:            "dump",
	Count:           "count",
	Log:             "log",
	Replace:         "replace",
}

// Commands lists every command in code order.
func Commands() []Command {
	return []Command{Put, Get, Read, GetNonBlocking, ReadNonBlocking, Dump, Count, Log, Replace}
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "command(" + strconv.Itoa(int(c)) + ")"
}

func (c Command) Valid() bool {
	_, ok := commandNames[c]
	return ok
}

// Blocking reports whether the server may hold the response until a match exists.
func (c Command) Blocking() bool {
	return c == Get || c == Read
}

// Removes reports whether a successful response removes the matched tuple.
func (c Command) Removes() bool {
	return c == Get || c == GetNonBlocking
}
