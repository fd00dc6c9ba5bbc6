package main

import (
	"fmt"
	"os"

	"github.com/meysam81/go-bus/imaging/jpeg"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newJPEGCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jpeg",
		Short: "Inspect and patch JPEG and JPEG-LS headers",
	}
	cmd.AddCommand(newJPEGInspectCmd(a), newJPEGPatchCmd(a), newJPEGStripCmd(a))
	return cmd
}

type inspectOutput struct {
	File string `json:"file"`
	*jpeg.Info
}

func newJPEGInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "List the header markers, frame and scan of a JPEG file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			info, err := jpeg.Inspect(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			return a.print(inspectOutput{File: args[0], Info: info})
		},
	}
}

type patchOutput struct {
	Input       string            `json:"input"`
	Output      string            `json:"output"`
	Mode        string            `json:"mode,omitempty"`
	Changed     bool              `json:"changed"`
	CodingParam *jpeg.CodingParam `json:"coding_param,omitempty"`
}

func newJPEGPatchCmd(a *app) *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "patch <input> <output>",
		Short: "Insert the JPEG-LS coding parameters another codec expects",
		Long: `Insert an LSE segment spelling out the coding parameters of a JPEG-LS
stream with more than 12 bits per sample.

Modes:
  JAI2ISO                 make JAI ImageIO output decode with T.87 decoders
  ISO2JAI                 make T.87 output decode with JAI ImageIO
  ISO2JAI_IF_APP_OR_COM   ISO2JAI, only for streams with APPn or COM segments`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := jpeg.ParsePatchMode(mode)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			patched, param := m.PatchHeader(data)
			if err := os.WriteFile(args[1], patched, 0o644); err != nil {
				return err
			}
			if param != nil {
				a.logger.Info("inserted LSE segment",
					zap.String("file", args[0]),
					zap.Stringer("mode", m),
					zap.Stringer("param", param))
			}
			return a.print(patchOutput{
				Input:       args[0],
				Output:      args[1],
				Mode:        m.String(),
				Changed:     param != nil,
				CodingParam: param,
			})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", jpeg.ISO2JAI.String(), "Patch mode")
	return cmd
}

func newJPEGStripCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "strip <input> <output>",
		Short: "Remove the JPEG-LS coding parameter segment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			stripped, param, err := jpeg.StripLSE(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if err := os.WriteFile(args[1], stripped, 0o644); err != nil {
				return err
			}
			return a.print(patchOutput{
				Input:       args[0],
				Output:      args[1],
				Changed:     param != nil,
				CodingParam: param,
			})
		},
	}
}
