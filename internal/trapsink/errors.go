package trapsink

import "fmt"

func errPrivilegedPort(port int) error {
	return fmt.Errorf("trapsink: port %d is privileged; only %d is allowed below 1024", port, DefaultTrapPort)
}
