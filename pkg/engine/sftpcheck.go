package engine

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/openlpar/hmcctl/pkg/hmc"
	"github.com/openlpar/hmcctl/pkg/transports/hmccli"
)

// SFTPChecker verifies update images exist on the SFTP repository host
// before the console is asked to fetch them, turning a typo'd path into a
// fast failure instead of a long convergence timeout.
type SFTPChecker struct {
	// Timeout bounds the connection attempt. Zero means 30 seconds.
	Timeout time.Duration
}

func (c *SFTPChecker) CheckSFTP(ctx context.Context, spec hmccli.UpdateSpec) error {
	if spec.Files == "" {
		return nil
	}
	timeout := c.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	auth, err := sftpAuth(spec)
	if err != nil {
		return err
	}
	cfg := &ssh.ClientConfig{
		User:            spec.UserID,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // #nosec G106 -- repository hosts are caller-trusted
		Timeout:         timeout,
	}
	conn, err := ssh.Dial("tcp", spec.HostName+":22", cfg)
	if err != nil {
		return &hmc.ConsoleError{Op: "sftp preflight", Err: err}
	}
	defer conn.Close()

	client, err := sftp.NewClient(conn)
	if err != nil {
		return &hmc.ConsoleError{Op: "sftp preflight", Err: err}
	}
	defer client.Close()

	for _, file := range strings.Split(spec.Files, ",") {
		remote := path.Join(spec.Directory, file)
		if _, err := client.Stat(remote); err != nil {
			return &hmc.ConsoleError{
				Op:     "sftp preflight",
				Output: fmt.Sprintf("file %s is not readable on %s: %v", remote, spec.HostName, err),
			}
		}
	}
	return nil
}

func sftpAuth(spec hmccli.UpdateSpec) ([]ssh.AuthMethod, error) {
	if spec.SSHKeyFile != "" {
		key, err := os.ReadFile(spec.SSHKeyFile)
		if err != nil {
			return nil, &hmc.ConsoleError{Op: "sftp preflight", Err: err}
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, &hmc.ConsoleError{Op: "sftp preflight", Err: err}
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}
	return []ssh.AuthMethod{ssh.Password(spec.Password)}, nil
}
