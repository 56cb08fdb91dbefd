package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	tieba "github.com/geary0124/Tieba-Manager"
)

func signCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sign key=value...",
		Short: "Print a signed form body",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form := make(tieba.Form, 0, len(args))
			for _, arg := range args {
				k, v, ok := strings.Cut(arg, "=")
				if !ok {
					return fmt.Errorf("sign: %q is not key=value", arg)
				}
				form = append(form, tieba.Field{Key: k, Value: v})
			}
			fmt.Fprintln(cmd.OutOrStdout(), tieba.Sign(form).Encode())
			return nil
		},
	}
}

func frameCmd() *cobra.Command {
	var (
		cmdNo  uint32
		id     uint32
		useGz  bool
		decode bool
	)
	c := &cobra.Command{
		Use:   "frame <payload>",
		Short: "Encode a payload as an unencrypted websocket frame, or decode one given in hex",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := tieba.NewCodec(nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if decode {
				b, err := hex.DecodeString(args[0])
				if err != nil {
					return errors.Wrap(err, "frame")
				}
				payload, fc, rid, err := codec.Decode(b)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "cmd=%d id=%d payload=%q\n", fc, rid, payload)
				return nil
			}
			b, err := codec.Encode([]byte(args[0]), tieba.Cmd(cmdNo), id, useGz, false)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, hex.EncodeToString(b))
			return nil
		},
	}
	c.Flags().Uint32Var(&cmdNo, "cmd", uint32(tieba.CmdCommitPersonalMsg), "frame command")
	c.Flags().Uint32Var(&id, "id", 1, "request id")
	c.Flags().BoolVar(&useGz, "gzip", false, "compress the payload")
	c.Flags().BoolVarP(&decode, "decode", "d", false, "decode a hex frame instead")
	return c
}

func loginCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in and print the account",
		Args:  cobra.NoArgs,
		RunE: runWithSession(opts, func(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
			if !s.client.Login(ctx) {
				return errors.New("login failed")
			}
			user := s.client.Self(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "user_id=%d name=%s portrait=%s tbs=%s\n",
				user.ID, user.Name, user.Portrait, s.client.Tbs(ctx))
			return nil
		}),
	}
}

func fidCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "fid <forum>...",
		Short: "Look up forum ids",
		Args:  cobra.MinimumNArgs(1),
		RunE: runWithSession(opts, func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			var failed int
			for _, fname := range args {
				fid := s.client.GetFid(ctx, fname)
				if fid == 0 {
					failed++
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", fname, fid)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d lookups failed", failed, len(args))
			}
			return nil
		}),
	}
}

func newMsgCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "newmsg",
		Short: "Print which notifications are unread",
		Args:  cobra.NoArgs,
		RunE: runWithSession(opts, func(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
			m := s.client.GetNewMsg(ctx)
			fmt.Fprintf(cmd.OutOrStdout(),
				"fans=%t replyme=%t atme=%t agree=%t pletter=%t bookmark=%t count=%t\n",
				m.Fans, m.ReplyMe, m.AtMe, m.Agree, m.PrivateLetter, m.Bookmark, m.Count)
			return nil
		}),
	}
}

func repliesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "replies [page]",
		Short: "Dump a page of replies to the account as hex protobuf",
		Args:  cobra.MaximumNArgs(1),
		RunE: runWithSession(opts, func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			pn := 1
			if len(args) == 1 {
				var err error
				if pn, err = strconv.Atoi(args[0]); err != nil {
					return errors.Wrap(err, "replies: bad page")
				}
			}
			data := s.client.GetReplies(ctx, pn)
			if data == nil {
				return errors.New("replies: request failed")
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(data))
			return nil
		}),
	}
}

func sendCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "send <user_id> <content>",
		Short: "Send a private message",
		Args:  cobra.ExactArgs(2),
		RunE: runWithSession(opts, func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			uid, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return errors.Wrap(err, "send: bad user id")
			}
			if !s.client.InitWebsocket(ctx) {
				return errors.New("send: websocket unavailable")
			}
			if !s.client.SendMsg(ctx, uid, args[1]) {
				return errors.New("send: message was not delivered")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "sent")
			return nil
		}),
	}
}
