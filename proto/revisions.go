package proto

// Revision gates the presence of optional fields throughout the protocol.
// Every wire-format conditional in this module reads from the named
// constants below — no magic numbers anywhere else, keeping the opcode/type
// tables centralized in one file rather than scattered through the parser.
type Revision uint64

// Named minimum-revision constants. Values follow the real wire protocol's
// numbering; an implementation negotiating effectiveRevision below one of
// these must not read or write the associated field, and must at
// effectiveRevision >= the constant.
const (
	RevisionInitial Revision = 54451

	RevisionWithTimezone            Revision = 54372
	RevisionWithQuotaKeyInClientInfo Revision = 54060
	RevisionWithTablesStatus         Revision = 54226
	RevisionWithTimeZoneParameterInDateTimeDataType Revision = 54337
	RevisionWithServerDisplayName   Revision = 54372
	RevisionWithVersionPatch        Revision = 54401
	RevisionWithServerLogs          Revision = 54406
	RevisionWithClientInfo          Revision = 54032
	RevisionWithCurrentAggregationVariant Revision = 54429
	RevisionWithColumnDefaultsMetadata     Revision = 54410
	RevisionWithCustomSerialization  Revision = 54454
	RevisionWithParameters           Revision = 54459
	RevisionWithQuotaKey             Revision = 54060
	RevisionWithClientWriteInfo      Revision = 54420
	RevisionWithInterserverSecret    Revision = 54441
	RevisionWithOpenTelemetry        Revision = 54442
	RevisionWithDistributedDepth     Revision = 54448
	RevisionWithInitialQueryStartTime Revision = 54449
	RevisionWithProfileEvents        Revision = 54451
	RevisionWithParallelReplicas     Revision = 54453
	RevisionWithJWT                  Revision = 54468

	// ClientTCPProtocolVersion is the revision this implementation speaks
	// when it initiates a handshake. The negotiated effectiveRevision is
	// always min(server, client).
	ClientTCPProtocolVersion Revision = 54468
)

// In reports whether the receiving feature's minimum revision is satisfied
// by the negotiated revision eff.
func (min Revision) In(eff Revision) bool { return eff >= min }
