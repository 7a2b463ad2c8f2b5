package networking

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/geanlabs/pqlean/types"
	"github.com/golang/snappy"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	pb "github.com/libp2p/go-libp2p-pubsub/pb"
	"github.com/libp2p/go-libp2p/core/host"
	sha256 "github.com/minio/sha256-simd"
)

const DefaultNetworkName = "devnet0"

// justificationLookbackSlots sizes the seen-message cache in slots.
const justificationLookbackSlots = 3

// Topic kinds carried on gossip.
const (
	KindBlock       = "block"
	KindAttestation = "attestation"
	KindAggregate   = "aggregate"
)

// Topics holds the gossip topic names for one network.
// Format: /leanconsensus/<network>/<kind>/ssz_snappy
type Topics struct {
	Block       string
	Attestation string
	Aggregate   string
}

func TopicName(network, kind string) string {
	return "/leanconsensus/" + network + "/" + kind + "/ssz_snappy"
}

func NewTopics(network string) Topics {
	if network == "" {
		network = DefaultNetworkName
	}
	return Topics{
		Block:       TopicName(network, KindBlock),
		Attestation: TopicName(network, KindAttestation),
		Aggregate:   TopicName(network, KindAggregate),
	}
}

// Message domains for gossipsub message ID computation.
var (
	messageDomainInvalidSnappy = [4]byte{0x00, 0x00, 0x00, 0x00}
	messageDomainValidSnappy   = [4]byte{0x01, 0x00, 0x00, 0x00}
)

// NewGossipSub creates a gossipsub instance with lean consensus parameters.
func NewGossipSub(ctx context.Context, h host.Host) (*pubsub.PubSub, error) {
	seenTTL := time.Duration(types.SecondsPerSlot*justificationLookbackSlots*2) * time.Second

	gsParams := pubsub.DefaultGossipSubParams()
	gsParams.D = 8
	gsParams.Dlo = 6
	gsParams.Dhi = 12
	gsParams.Dlazy = 6
	gsParams.HeartbeatInterval = 700 * time.Millisecond
	gsParams.FanoutTTL = 60 * time.Second
	gsParams.HistoryLength = 6
	gsParams.HistoryGossip = 3

	opts := []pubsub.Option{
		pubsub.WithMessageIdFn(computePubsubMessageID),
		pubsub.WithGossipSubParams(gsParams),
		pubsub.WithSeenMessagesTTL(seenTTL),
		pubsub.WithMessageSignaturePolicy(pubsub.StrictNoSign),
		pubsub.WithFloodPublish(false),
	}

	return pubsub.NewGossipSub(ctx, h, opts...)
}

func computePubsubMessageID(msg *pb.Message) string {
	return MessageID(msg.GetTopic(), msg.Data)
}

// MessageID is the 20-byte gossip deduplication id:
// SHA256(domain || LE64(len(topic)) || topic || payload)[:20].
// The payload is the decompressed message when data is valid snappy, and the
// raw data otherwise; the domain records which case applied.
func MessageID(topic string, data []byte) string {
	domain := messageDomainInvalidSnappy
	payload := data
	if decoded, err := snappy.Decode(nil, data); err == nil {
		domain = messageDomainValidSnappy
		payload = decoded
	}

	var topicLen [8]byte
	binary.LittleEndian.PutUint64(topicLen[:], uint64(len(topic)))

	h := sha256.New()
	h.Write(domain[:])
	h.Write(topicLen[:])
	h.Write([]byte(topic))
	h.Write(payload)

	return string(h.Sum(nil)[:20])
}

// CompressMessage compresses data using snappy for gossipsub.
func CompressMessage(data []byte) []byte {
	return snappy.Encode(nil, data)
}

// DecompressMessage decompresses snappy-compressed data.
func DecompressMessage(data []byte) ([]byte, error) {
	return snappy.Decode(nil, data)
}
