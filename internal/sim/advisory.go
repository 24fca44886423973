package sim

import "fmt"

// Advisory is a non-fatal finding surfaced to the operator. Execution continues.
type Advisory struct {
	Channel string
	Message string
}

func (a Advisory) String() string {
	if a.Channel == "" {
		return a.Message
	}
	return fmt.Sprintf("%s: %s", a.Channel, a.Message)
}
