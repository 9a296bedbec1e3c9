// Package graphql implements the GraphQL surface: three
// schemas — client (full CRUD + subscriptions), mix (a restricted single-
// Output tuning view), and dashboard (read-only aggregated stats) — each
// backed by the same store.Store, per §4.7.
package graphql

const clientSchema = `
schema {
	query: Query
	mutation: Mutation
	subscription: Subscription
}

type Query {
	restreams: [Restream!]!
	restream(id: ID!): Restream
	export(restreamId: ID): String!
}

type Mutation {
	setRestream(id: ID, key: String!, label: String, src: String, backups: [BackupInput!], withHls: Boolean!): MutationResult!
	removeRestream(id: ID!): MutationResult!
	enableRestream(id: ID!): MutationResult!
	disableRestream(id: ID!): MutationResult!
	enableInput(restreamId: ID!, inputId: ID!): MutationResult!
	disableInput(restreamId: ID!, inputId: ID!): MutationResult!
	changeEndpointLabel(restreamId: ID!, inputId: ID!, endpointId: ID!, label: String!): MutationResult!

	setOutput(restreamId: ID!, id: ID, dst: String!, label: String, previewUrl: String, mixinSrcs: [String!]): MutationResult!
	removeOutput(restreamId: ID!, id: ID!): MutationResult!
	enableOutput(restreamId: ID!, id: ID!): MutationResult!
	disableOutput(restreamId: ID!, id: ID!): MutationResult!
	enableAllOutputs(restreamId: ID!): MutationResult!
	disableAllOutputs(restreamId: ID!): MutationResult!
	enableAllOutputsOfRestreams: MutationResult!
	disableAllOutputsOfRestreams: MutationResult!

	tuneVolume(restreamId: ID!, outputId: ID!, mixinId: ID, level: Int!, muted: Boolean!): MutationResult!
	tuneDelay(restreamId: ID!, outputId: ID!, mixinId: ID!, delayMs: Int!): MutationResult!
	tuneSidechain(restreamId: ID!, outputId: ID!, mixinId: ID!, sidechain: Boolean!): MutationResult!

	setPassword(kind: PasswordKind!, old: String, new: String): MutationResult!
	setSettings(title: String, deleteConfirmation: Boolean, enableConfirmation: Boolean): MutationResult!
	importRestreams(replace: Boolean!, spec: String!): MutationResult!
}

type Subscription {
	state: State!
}

input BackupInput {
	key: String!
	src: String
}

enum PasswordKind { MAIN OUTPUT }

enum MutationResult { APPLIED NO_CHANGE NOT_FOUND CONFLICT }

type State {
	restreams: [Restream!]!
	title: String
	deleteConfirmation: Boolean
	enableConfirmation: Boolean
}

type Restream {
	id: ID!
	key: String!
	label: String
	enabled: Boolean!
	input: Input!
	outputs: [Output!]!
}

type Input {
	id: ID!
	key: String!
	enabled: Boolean!
	src: SourceKind!
	pullUrl: String
	failover: [Input!]!
	endpoints: [InputEndpoint!]!
}

enum SourceKind { PUSH PULL FAILOVER }
enum EndpointKind { RTMP HLS }
enum StatusKind { OFFLINE INITIALIZING ONLINE UNSTABLE }

type InputEndpoint {
	id: ID!
	kind: EndpointKind!
	label: String
	status: StatusKind!
}

type Output {
	id: ID!
	dst: String!
	label: String
	previewUrl: String
	enabled: Boolean!
	volume: Volume!
	mixins: [Mixin!]!
	status: StatusKind!
}

type Mixin {
	id: ID!
	src: String!
	volume: Volume!
	delayMs: Int!
	sidechain: Boolean!
	status: StatusKind!
}

type Volume {
	level: Int!
	muted: Boolean!
}
`

// mixSchema exposes exactly one Output and its tuning mutations, scoped
// to the output-password realm rather than the main one.
const mixSchema = `
schema {
	query: Query
	mutation: Mutation
	subscription: Subscription
}

type Query {
	output(restreamId: ID!, outputId: ID!): Output
}

type Mutation {
	tuneVolume(restreamId: ID!, outputId: ID!, mixinId: ID, level: Int!, muted: Boolean!): MutationResult!
	tuneDelay(restreamId: ID!, outputId: ID!, mixinId: ID!, delayMs: Int!): MutationResult!
	tuneSidechain(restreamId: ID!, outputId: ID!, mixinId: ID!, sidechain: Boolean!): MutationResult!
}

type Subscription {
	outputUpdates(restreamId: ID!, outputId: ID!): Output
}

enum MutationResult { APPLIED NO_CHANGE NOT_FOUND CONFLICT }
enum StatusKind { OFFLINE INITIALIZING ONLINE UNSTABLE }

type Output {
	id: ID!
	dst: String!
	label: String
	enabled: Boolean!
	volume: Volume!
	mixins: [Mixin!]!
	status: StatusKind!
}

type Mixin {
	id: ID!
	src: String!
	volume: Volume!
	delayMs: Int!
	sidechain: Boolean!
	status: StatusKind!
}

type Volume {
	level: Int!
	muted: Boolean!
}
`

// dashboardSchema is read-only: aggregated status counts, client stats,
// server telemetry, and the DVR file listing.
const dashboardSchema = `
schema {
	query: Query
}

type Query {
	summary: DashboardSummary!
	serverInfo: ServerInfo!
	dvrFiles: [DVRFile!]!
	clientStats: [ClientStat!]!
}

type DashboardSummary {
	restreamCount: Int!
	outputCount: Int!
	onlineEndpointCount: Int!
	onlineOutputCount: Int!
}

type ServerInfo {
	cpuUsagePercent: Float!
	ramUsagePercent: Float!
	goroutines: Int!
}

type DVRFile {
	name: String!
	sizeBytes: Int!
	referenced: Boolean!
}

type ClientStat {
	endpointId: ID!
	count: Int!
}
`
