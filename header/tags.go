package header

// Tag is a 32-bit RPM tag identifier. Signature-section tags and
// header-section tags share the same numeric space but live in separate
// Stores, so the same int values mean different things depending on
// which section they're read from (compare the Sig* constants with the
// header-section Tag* constants below, e.g. SigSize and TagName are both 1000).
type Tag uint32

// Pseudo-tags marking the start of the immutable region in each section.
const (
	TagHeaderSignatures Tag = 0x3e // 62: region marker used inside the signature section
	TagHeaderImmutable  Tag = 0x3f // 63: region marker used inside the header section
)

// Header-section tags.
const (
	TagHeaderI18NTable Tag = 0x64 // 100

	TagName        Tag = 1000
	TagVersion     Tag = 1001
	TagRelease     Tag = 1002
	TagEpoch       Tag = 1003
	TagSummary     Tag = 1004
	TagDescription Tag = 1005
	TagBuildTime   Tag = 1006
	TagBuildHost   Tag = 1007
	TagSize        Tag = 1009

	TagDistribution Tag = 1010
	TagVendor       Tag = 1011
	TagLicense      Tag = 1014
	TagPackager     Tag = 1015
	TagGroup        Tag = 1016
	TagURL          Tag = 1020
	TagOS           Tag = 1021
	TagArch         Tag = 1022

	TagPrein     Tag = 1023
	TagPostin    Tag = 1024
	TagPreun     Tag = 1025
	TagPostun    Tag = 1026
	TagOldFile   Tag = 1027
	TagFileSizes Tag = 1028
	TagFileModes Tag = 1030
	TagFileRDevs Tag = 1033

	TagFileMTimes    Tag = 1034
	TagFileDigests   Tag = 1035
	TagFileLinkTos   Tag = 1036
	TagFileFlags     Tag = 1037
	TagFileUserName  Tag = 1039
	TagFileGroupName Tag = 1040
	TagSourceRPM     Tag = 1044

	TagFileVerifyFlags Tag = 1045
	TagProvideName     Tag = 1047
	TagRequireFlags    Tag = 1048
	TagRequireName     Tag = 1049
	TagRequireVersion  Tag = 1050

	TagConflictFlags   Tag = 1053
	TagConflictName    Tag = 1054
	TagConflictVersion Tag = 1055

	TagRPMVersion    Tag = 1064
	TagChangelogTime Tag = 1080
	TagChangelogName Tag = 1081
	TagChangelogText Tag = 1082
	TagPreinProg     Tag = 1085
	TagPostinProg    Tag = 1086
	TagPreunProg     Tag = 1087
	TagPostunProg    Tag = 1088
	TagObsoleteName  Tag = 1090
	TagCookie        Tag = 1094

	TagFileDevices Tag = 1095
	TagFileInodes  Tag = 1096
	TagFileLangs   Tag = 1097
	TagPrefixes    Tag = 1098

	TagObsoleteFlags   Tag = 1114
	TagObsoleteVersion Tag = 1115
	TagProvideFlags    Tag = 1112
	TagProvideVersion  Tag = 1113
	TagDirIndexes      Tag = 1116
	TagBaseNames       Tag = 1117
	TagDirNames        Tag = 1118

	TagOptFlags          Tag = 1122
	TagDistURL           Tag = 1123
	TagPayloadFormat     Tag = 1124
	TagPayloadCompressor Tag = 1125
	TagPayloadFlags      Tag = 1126

	TagPlatform Tag = 1132

	TagFileColors    Tag = 1140
	TagFileClass     Tag = 1141
	TagClassDict     Tag = 1142
	TagFileDependsX  Tag = 1143
	TagFileDependsN  Tag = 1144
	TagDependsDict   Tag = 1145
	TagSourcePkgID   Tag = 1146

	TagPretrans      Tag = 1151
	TagPretransProg  Tag = 1152
	TagPosttrans     Tag = 1154
	TagPosttransProg Tag = 1155

	TagRecommendName    Tag = 5046
	TagRecommendVersion Tag = 5047
	TagRecommendFlags   Tag = 5048
	TagSuggestName      Tag = 5049
	TagSuggestVersion   Tag = 5050
	TagSuggestFlags     Tag = 5051

	TagFileDigestAlgo Tag = 5011
)

// Signature-section tags (RPMSIGTAG_*).
const (
	SigSize        Tag = 1000
	SigPGP         Tag = 1002
	SigMD5         Tag = 1004
	SigGPG         Tag = 1005
	SigPayloadSize Tag = 1007
	SigDSA         Tag = 267
	SigRSA         Tag = 268
	SigSHA1        Tag = 269
	SigSHA256      Tag = 273
)

// Digest algorithm identifiers stored in FILEDIGESTALGO / payload digest
// algo tags.
const (
	DigestAlgoMD5    = 1
	DigestAlgoSHA256 = 8
)

// CanonicalHeaderOrder is the tag sequence that must be produced, in this
// order, when present — spec.md §6 "Canonical header tag order". Extend
// only by appending; never reorder existing entries, or byte-exact output
// against a reference rpm changes.
var CanonicalHeaderOrder = []Tag{
	TagHeaderImmutable, TagHeaderI18NTable, TagName, TagVersion, TagRelease,
	TagSummary, TagDescription, TagBuildTime, TagBuildHost, TagSize,
	TagDistribution, TagVendor, TagLicense, TagGroup, TagURL, TagOS, TagArch,
	TagFileSizes, TagFileModes, TagFileRDevs, TagFileMTimes, TagFileDigests,
	TagFileLinkTos, TagFileFlags, TagFileUserName, TagFileGroupName,
	TagSourceRPM, TagFileVerifyFlags, TagProvideName, TagRequireFlags,
	TagRequireName, TagRequireVersion, TagRPMVersion, TagChangelogTime,
	TagChangelogName, TagChangelogText, TagPostinProg,
	TagPostunProg, TagCookie, TagFileDevices, TagFileInodes,
	TagFileLangs, TagProvideFlags, TagProvideVersion, TagDirIndexes,
	TagBaseNames, TagDirNames, TagOptFlags, TagDistURL, TagPayloadFormat,
	TagPayloadCompressor, TagPayloadFlags, TagPlatform, TagFileColors,
	TagFileClass, TagClassDict, TagFileDependsX, TagFileDependsN,
	TagDependsDict, TagSourcePkgID, TagFileDigestAlgo,
	// appended past the spec's literal list, for tags the spec's
	// PackageAssembler (§4.7) populates but the canonical list predates:
	TagEpoch, TagPackager, TagPrein, TagPostin, TagPreun, TagPostun,
	TagPreinProg, TagPreunProg, TagPretrans, TagPretransProg, TagPosttrans, TagPosttransProg,
	TagObsoleteName, TagObsoleteFlags, TagObsoleteVersion,
	TagConflictName, TagConflictFlags, TagConflictVersion,
	TagRecommendName, TagRecommendVersion, TagRecommendFlags,
	TagSuggestName, TagSuggestVersion, TagSuggestFlags, TagPrefixes,
}

// CanonicalSignatureOrder fixes the open question spec.md §9 leaves
// unconstrained: ascending numeric tag order, chosen here as a documented
// decision rather than a reverse-engineered requirement (see DESIGN.md).
var CanonicalSignatureOrder = []Tag{
	SigDSA, SigRSA, SigSHA1, SigSHA256,
	SigSize, SigPGP, SigMD5, SigGPG, SigPayloadSize,
}
