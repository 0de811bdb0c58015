package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mycelia-dev/subsystem-kernel/message"
	"github.com/mycelia-dev/subsystem-kernel/security"
)

var (
	principalKind       string
	principalName       string
	principalExpiration string
)

var principalCmd = &cobra.Command{
	Use:   "principal",
	Short: "Mint a principal against a throwaway security registry",
	Long: "principal builds a fresh security.Registry around a demo kernel that\n" +
		"just logs what it's asked to send protected, mints a principal of\n" +
		"--kind, and prints the resulting PKR as JSON.",
}

var principalMintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Mint a principal and print its PKR",
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return nil
	},
	RunE: runPrincipalMint,
}

func init() {
	principalMintCmd.Flags().StringVar(&principalKind, "kind", security.KindTopLevel, "principal kind: kernel, topLevel, child, friend, resource")
	principalMintCmd.Flags().StringVar(&principalName, "name", "", "optional display name")
	principalMintCmd.Flags().StringVar(&principalExpiration, "expiration", "", "optional expiration, e.g. \"2 days\" (defaults to 1 week)")
	principalCmd.AddCommand(principalMintCmd)
}

// loggingKernel is a demo security.Kernel that reports every protected
// send through the CLI's logger instead of actually transporting
// anything.
type loggingKernel struct{}

func (loggingKernel) SendProtected(pkr *security.PKR, msg message.Message, opts map[string]any) error {
	log.Debugf("sendProtected: pkr=%s path=%s", pkr.UUID(), msg.GetPath())
	return nil
}

func runPrincipalMint(cmd *cobra.Command, args []string) error {
	registry, kernelIdentity, err := security.New(loggingKernel{})
	if err != nil {
		return err
	}
	_ = kernelIdentity // the kernel principal itself; minting below is independent of it

	if principalKind == security.KindKernel {
		return fmt.Errorf("a registry already mints its own kernel principal; choose a different --kind")
	}

	_, pkr, err := registry.CreatePrincipal(principalKind, security.PrincipalOptions{
		Name:       principalName,
		Expiration: principalExpiration,
	})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(pkr.ToJSON(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
