package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/pairgate/internal/config"
	"github.com/nextlevelbuilder/pairgate/pkg/protocol"
)

func pairCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pair",
		Short: "Manage channel pairing requests (list, approve)",
	}

	cmd.AddCommand(pairListCmd())
	cmd.AddCommand(pairApproveCmd())

	return cmd
}

func pairListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <channel>",
		Short: "List pending pairing requests for a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, _ := json.Marshal(map[string]string{"channel": args[0]})

			resp, err := gatewayRPC(protocol.MethodPairList, params)
			if err != nil {
				return err
			}
			if !resp.OK {
				return fmt.Errorf("%s", resp.Error.Message)
			}

			data, _ := json.MarshalIndent(resp.Payload, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	}
}

func pairApproveCmd() *cobra.Command {
	var notify bool

	cmd := &cobra.Command{
		Use:   "approve <channel> <code>",
		Short: "Approve a pending pairing code",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, _ := json.Marshal(map[string]interface{}{
				"channel": args[0],
				"code":    args[1],
				"notify":  notify,
			})

			resp, err := gatewayRPC(protocol.MethodPairApprove, params)
			if err != nil {
				return err
			}
			if !resp.OK {
				return fmt.Errorf("%s", resp.Error.Message)
			}

			fmt.Printf("Pairing approved! Code: %s\n", args[1])
			if resp.Payload != nil {
				data, _ := json.MarshalIndent(resp.Payload, "", "  ")
				fmt.Println(string(data))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&notify, "notify", false, "notify the channel about the approval")
	return cmd
}

// gatewayRPC connects to the running gateway, authenticates, sends an RPC
// call, and returns the response.
func gatewayRPC(method string, params json.RawMessage) (*protocol.ResponseFrame, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	host := cfg.Gateway.Host
	if host == "0.0.0.0" {
		host = "127.0.0.1"
	}

	u := url.URL{Scheme: "ws", Host: fmt.Sprintf("%s:%d", host, cfg.Gateway.Port), Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("connect to gateway at %s: %w", u.String(), err)
	}
	defer conn.Close()

	// Step 1: Send connect handshake
	connectParams, _ := json.Marshal(map[string]interface{}{
		"token":    cfg.Gateway.Auth.Token,
		"password": cfg.Gateway.Auth.Password,
		"protocol": protocol.ProtocolVersion,
	})
	connectReq := protocol.RequestFrame{
		Type:   protocol.FrameTypeRequest,
		ID:     "cli-connect",
		Method: protocol.MethodConnect,
		Params: connectParams,
	}
	if err := conn.WriteJSON(connectReq); err != nil {
		return nil, fmt.Errorf("send connect: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var connectResp protocol.ResponseFrame
	if err := conn.ReadJSON(&connectResp); err != nil {
		return nil, fmt.Errorf("read connect response: %w", err)
	}
	if !connectResp.OK {
		msg := "unknown error"
		if connectResp.Error != nil {
			msg = connectResp.Error.Message
		}
		return nil, fmt.Errorf("connect failed: %s", msg)
	}

	// Step 2: Send the RPC call
	rpcReq := protocol.RequestFrame{
		Type:   protocol.FrameTypeRequest,
		ID:     "cli-rpc",
		Method: method,
		Params: params,
	}
	if err := conn.WriteJSON(rpcReq); err != nil {
		return nil, fmt.Errorf("send RPC: %w", err)
	}

	// Read response (skip events, find response with matching ID)
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}

		frameType, _ := protocol.ParseFrameType(msg)
		if frameType == protocol.FrameTypeEvent {
			continue
		}

		var resp protocol.ResponseFrame
		if err := json.Unmarshal(msg, &resp); err != nil {
			return nil, fmt.Errorf("parse response: %w", err)
		}
		if resp.ID == "cli-rpc" {
			return &resp, nil
		}
	}
}
