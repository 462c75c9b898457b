// Package sshrun executes remote commands and secure copies for a given
// SSH identity.
//
// Every operation authenticates from scratch and holds nothing open
// afterwards: there is no persistent session, connection pool, or
// multiplexing. This trades latency for a lifecycle-free model that suits
// a tool doing one blocking remote operation at a time.
//
// # Components
//
//   - [CommandRunner]: runs one non-interactive command against a [Target]
//   - [Copier]: moves one file or directory between local and remote
//
// The production implementations shell out to the local OpenSSH binaries:
//
//	runner := sshrun.NewExecRunner()
//	result, err := runner.Run(ctx, target, `ls -la "/home/alice"`)
//
//	copier := sshrun.NewExecCopier()
//	result, err := copier.Copy(ctx, target,
//		sshrun.Endpoint{Path: "/remote/file", Remote: true},
//		sshrun.Endpoint{Path: "/local/dir"},
//	)
//
// [NativeRunner] and [NativeCopier] provide the same contracts with an
// in-process SSH/SFTP client for hosts without an OpenSSH installation.
//
// Host keys are not verified by any implementation; the tool targets
// short-lived cloud instances where StrictHostKeyChecking=no is the
// operating mode.
package sshrun
