package reqresp

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/geanlabs/pqlean/types"
	"github.com/golang/snappy"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
)

const (
	ReadTimeout  = 10 * time.Second
	WriteTimeout = 10 * time.Second
	MaxMsgSize   = 10 * 1024 * 1024 // 10MB
)

// Response codes.
const (
	RespCodeSuccess     byte = 0x00
	RespCodeInvalidReq  byte = 0x01
	RespCodeServerError byte = 0x02
)

// ResponseError is a non-success response chunk returned by a peer.
type ResponseError struct {
	Code    byte
	Message string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("peer returned error code %d: %s", e.Code, e.Message)
}

// StreamHandler manages request/response protocol streams.
type StreamHandler struct {
	host    host.Host
	handler *Handler
	logger  *slog.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(h host.Host, handler *Handler, logger *slog.Logger) *StreamHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamHandler{
		host:    h,
		handler: handler,
		logger:  logger,
	}
}

// RegisterProtocols registers all request/response protocol handlers.
func (s *StreamHandler) RegisterProtocols() {
	s.host.SetStreamHandler(protocol.ID(StatusProtocolV1), s.handleStatusStream)
	s.host.SetStreamHandler(protocol.ID(BlocksByRootProtocolV1), s.handleBlocksByRootStream)
}

func (s *StreamHandler) handleStatusStream(stream network.Stream) {
	defer stream.Close()

	_ = stream.SetReadDeadline(time.Now().Add(ReadTimeout))
	data, err := readMessage(bufio.NewReader(stream))
	if err != nil {
		s.logger.Debug("status: failed to read request", "peer", stream.Conn().RemotePeer(), "error", err)
		writeErrorResponse(stream, RespCodeInvalidReq, err.Error())
		return
	}

	var peerStatus Status
	if err := peerStatus.UnmarshalSSZ(data); err != nil {
		s.logger.Debug("status: failed to unmarshal", "error", err)
		writeErrorResponse(stream, RespCodeInvalidReq, err.Error())
		return
	}
	if err := s.handler.ValidatePeerStatus(&peerStatus); err != nil {
		s.logger.Debug("status: peer rejected", "peer", stream.Conn().RemotePeer(), "error", err)
		writeErrorResponse(stream, RespCodeInvalidReq, err.Error())
		return
	}

	ourStatus, err := s.handler.GetStatus()
	if err != nil {
		writeErrorResponse(stream, RespCodeServerError, err.Error())
		return
	}
	respData, err := ourStatus.MarshalSSZ()
	if err != nil {
		writeErrorResponse(stream, RespCodeServerError, err.Error())
		return
	}

	_ = stream.SetWriteDeadline(time.Now().Add(WriteTimeout))
	if err := writeSuccessResponse(stream, respData); err != nil {
		s.logger.Debug("status: failed to write response", "error", err)
	}
}

func (s *StreamHandler) handleBlocksByRootStream(stream network.Stream) {
	defer stream.Close()

	_ = stream.SetReadDeadline(time.Now().Add(ReadTimeout))
	data, err := readMessage(bufio.NewReader(stream))
	if err != nil {
		writeErrorResponse(stream, RespCodeInvalidReq, err.Error())
		return
	}

	var request BlocksByRootRequest
	if err := request.UnmarshalSSZ(data); err != nil {
		writeErrorResponse(stream, RespCodeInvalidReq, err.Error())
		return
	}

	blocks, err := s.handler.HandleBlocksByRoot(&request)
	if err != nil {
		s.logger.Warn("blocks_by_root: store read failed", "error", err)
	}

	// One response chunk per block.
	_ = stream.SetWriteDeadline(time.Now().Add(WriteTimeout))
	for _, block := range blocks {
		blockData, err := block.MarshalSSZ()
		if err != nil {
			continue
		}
		if err := writeSuccessResponse(stream, blockData); err != nil {
			s.logger.Debug("blocks_by_root: failed to write chunk", "error", err)
			return
		}
	}
	if err != nil {
		writeErrorResponse(stream, RespCodeServerError, err.Error())
	}
}

// request opens a stream, writes one request and half-closes it.
func (s *StreamHandler) request(ctx context.Context, peerID peer.ID, proto string, data []byte) (network.Stream, error) {
	stream, err := s.host.NewStream(ctx, peerID, protocol.ID(proto))
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	_ = stream.SetWriteDeadline(time.Now().Add(WriteTimeout))
	if err := writeMessage(stream, data); err != nil {
		stream.Reset()
		return nil, fmt.Errorf("write request: %w", err)
	}
	if err := stream.CloseWrite(); err != nil {
		stream.Reset()
		return nil, fmt.Errorf("close write: %w", err)
	}
	_ = stream.SetReadDeadline(time.Now().Add(ReadTimeout))
	return stream, nil
}

// SendStatus sends a Status request to a peer and returns their status.
func (s *StreamHandler) SendStatus(ctx context.Context, peerID peer.ID, status *Status) (*Status, error) {
	data, err := status.MarshalSSZ()
	if err != nil {
		return nil, fmt.Errorf("marshal status: %w", err)
	}
	stream, err := s.request(ctx, peerID, StatusProtocolV1, data)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	respData, err := readResponse(bufio.NewReader(stream))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var peerStatus Status
	if err := peerStatus.UnmarshalSSZ(respData); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return &peerStatus, nil
}

// RequestBlocksByRoot requests blocks from a peer by their roots. Chunks that
// fail to decode are skipped; an error chunk ends the response.
func (s *StreamHandler) RequestBlocksByRoot(ctx context.Context, peerID peer.ID, roots []types.Root) ([]*types.SignedBlockWithAttestation, error) {
	data, err := (&BlocksByRootRequest{Roots: roots}).MarshalSSZ()
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	stream, err := s.request(ctx, peerID, BlocksByRootProtocolV1, data)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	return readBlocks(bufio.NewReader(stream))
}

func readBlocks(r *bufio.Reader) ([]*types.SignedBlockWithAttestation, error) {
	var blocks []*types.SignedBlockWithAttestation
	for {
		respData, err := readResponse(r)
		if errors.Is(err, io.EOF) {
			return blocks, nil
		}
		var respErr *ResponseError
		if errors.As(err, &respErr) {
			return blocks, err
		}
		if err != nil {
			return blocks, fmt.Errorf("read response: %w", err)
		}

		var block types.SignedBlockWithAttestation
		if err := block.UnmarshalSSZ(respData); err != nil {
			continue
		}
		blocks = append(blocks, &block)
	}
}

// Framing: varint length of the uncompressed payload followed by the payload
// in the snappy framing format.

// readMessage reads one varint-prefixed, snappy-framed message.
func readMessage(r *bufio.Reader) ([]byte, error) {
	size, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	if size > MaxMsgSize {
		return nil, fmt.Errorf("message too large: %d", size)
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(snappy.NewReader(r), data); err != nil {
		return nil, fmt.Errorf("snappy decode: %w", err)
	}
	return data, nil
}

// writeMessage writes one varint-prefixed, snappy-framed message.
func writeMessage(w io.Writer, data []byte) error {
	if len(data) > MaxMsgSize {
		return fmt.Errorf("message too large: %d", len(data))
	}
	var prefix [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(prefix[:], uint64(len(data)))
	if _, err := w.Write(prefix[:n]); err != nil {
		return err
	}

	sw := snappy.NewBufferedWriter(w)
	if _, err := sw.Write(data); err != nil {
		return err
	}
	return sw.Close()
}

// readResponse reads a response code followed by its message. Non-success
// codes are returned as *ResponseError carrying the peer's message.
func readResponse(r *bufio.Reader) ([]byte, error) {
	code, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	data, err := readMessage(r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	if code != RespCodeSuccess {
		return nil, &ResponseError{Code: code, Message: string(data)}
	}
	return data, nil
}

func writeSuccessResponse(w io.Writer, data []byte) error {
	if _, err := w.Write([]byte{RespCodeSuccess}); err != nil {
		return err
	}
	return writeMessage(w, data)
}

func writeErrorResponse(w io.Writer, code byte, msg string) error {
	if _, err := w.Write([]byte{code}); err != nil {
		return err
	}
	return writeMessage(w, []byte(msg))
}
