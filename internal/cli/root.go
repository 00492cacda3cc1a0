// Copryright (C) 2019 Yawning Angel
//
// This work is licensed under the Creative Commons Attribution-NonCommercial-
// NoDerivatives 4.0 International License. To view a copy of this license,
// visit http://creativecommons.org/licenses/by-nc-nd/4.0/ or send a letter to
// Creative Commons, PO Box 1866, Mountain View, CA 94042, USA.

// Package cli implements the rijndael command line interface.
package cli

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btclog/v2"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"gitlab.com/yawning/rijndael.git"
)

// Execute runs the root command.
func Execute() error {
	return newRootCmd(NewConfig()).Execute()
}

func newRootCmd(cfg *Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rijndael",
		Short: "Rijndael/AES encryption tool",
		Long: `rijndael encrypts and decrypts messages with Rijndael/AES in CBC or
ECB mode, with optional length padding.

Only 128 bit keys are standard AES.  The 192 and 256 bit key sizes use a
non-standard key schedule.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setup(cmd, cfg)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.ConfigFile, "config", "", "YAML profile with default settings")
	flags.StringVarP(&cfg.Key, "key", "k", "", "hex encoded key")
	flags.IntVarP(&cfg.KeySize, "key-size", "s", cfg.KeySize, "key size in bits (128, 192, 256)")
	flags.StringVar(&cfg.IV, "iv", "", "hex encoded initialization vector")
	flags.BoolVar(&cfg.CBC, "cbc", cfg.CBC, "use cipher block chaining")
	flags.BoolVar(&cfg.Padding, "padding", cfg.Padding, "use length padding")
	flags.BoolVar(&cfg.KeyPadding, "key-padding", cfg.KeyPadding, "zero-extend short keys")
	flags.BoolVarP(&cfg.Text, "text", "t", false, "treat plaintext as text instead of hex")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "dump every intermediate step")
	flags.BoolVar(&cfg.Accelerated, "accelerated", false, "use the hardware block core when possible")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "encrypt <plaintext>",
			Short: "Encrypt a message",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runEncrypt(cmd, cfg, args[0])
			},
		},
		&cobra.Command{
			Use:   "decrypt <hex ciphertext>",
			Short: "Decrypt a message",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runDecrypt(cmd, cfg, args[0])
			},
		},
		&cobra.Command{
			Use:   "schedule",
			Short: "Print the expanded key schedule",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runSchedule(cmd, cfg)
			},
		},
	)

	return rootCmd
}

// setup merges the profile under any explicitly set flags, and installs
// the library logger.
func setup(cmd *cobra.Command, cfg *Config) error {
	if cfg.ConfigFile != "" {
		profile, err := LoadProfile(cfg.ConfigFile)
		if err != nil {
			return err
		}
		cfg.merge(cmd, profile)
	}

	logger := btclog.NewSLogger(btclog.NewDefaultHandler(cmd.ErrOrStderr()))
	if cfg.Verbose {
		logger.SetLevel(btclog.LevelDebug)
	}
	rijndael.UseLogger(logger.WithPrefix(rijndael.Subsystem))

	return nil
}

func (c *Config) merge(cmd *cobra.Command, profile *Config) {
	flags := cmd.Flags()
	for _, v := range []struct {
		name  string
		apply func()
	}{
		{"key", func() { c.Key = profile.Key }},
		{"key-size", func() { c.KeySize = profile.KeySize }},
		{"iv", func() { c.IV = profile.IV }},
		{"cbc", func() { c.CBC = profile.CBC }},
		{"padding", func() { c.Padding = profile.Padding }},
		{"key-padding", func() { c.KeyPadding = profile.KeyPadding }},
		{"text", func() { c.Text = profile.Text }},
		{"verbose", func() { c.Verbose = profile.Verbose }},
		{"accelerated", func() { c.Accelerated = profile.Accelerated }},
	} {
		if !flags.Changed(v.name) {
			v.apply()
		}
	}
}

func newCipher(cfg *Config) (*rijndael.Cipher, *traceTable, error) {
	trace := &traceTable{}

	var obs rijndael.Observer
	if cfg.Verbose {
		obs = trace
	}

	key, cipherCfg, err := cfg.CipherConfig(obs)
	if err != nil {
		return nil, nil, err
	}
	c, err := rijndael.New(key, cipherCfg)
	if err != nil {
		return nil, nil, err
	}

	return c, trace, nil
}

func runEncrypt(cmd *cobra.Command, cfg *Config, input string) error {
	c, trace, err := newCipher(cfg)
	if err != nil {
		return err
	}
	defer c.Reset()

	plaintext := []byte(input)
	if !cfg.Text {
		if plaintext, err = hex.DecodeString(input); err != nil {
			return fmt.Errorf("decoding plaintext: %w", err)
		}
	}

	ciphertext := c.Encrypt(plaintext)
	trace.Render(cmd.ErrOrStderr())

	_, err = fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(ciphertext))
	return err
}

func runDecrypt(cmd *cobra.Command, cfg *Config, input string) error {
	c, trace, err := newCipher(cfg)
	if err != nil {
		return err
	}
	defer c.Reset()

	ciphertext, err := hex.DecodeString(input)
	if err != nil {
		return fmt.Errorf("decoding ciphertext: %w", err)
	}

	plaintext, err := c.Decrypt(ciphertext)
	trace.Render(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	out := hex.EncodeToString(plaintext)
	if cfg.Text {
		out = string(plaintext)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}

func runSchedule(cmd *cobra.Command, cfg *Config) error {
	c, _, err := newCipher(cfg)
	if err != nil {
		return err
	}
	defer c.Reset()

	expanded := c.ExpandedKey()

	tw := table.NewWriter()
	tw.SetOutputMirror(cmd.OutOrStdout())
	tw.SetStyle(table.StyleLight)
	tw.SetTitle("%d bit key, %d rounds, %s", int(c.KeySize()), c.KeySize().Rounds(), c.Implementation())
	tw.AppendHeader(table.Row{"Round", "Subkey"})
	for round := 0; round*rijndael.BlockSize < len(expanded); round++ {
		off := round * rijndael.BlockSize
		tw.AppendRow(table.Row{round, formatBytes(expanded[off : off+rijndael.BlockSize])})
	}
	tw.Render()

	return nil
}
