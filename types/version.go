package types

// Version is the canonical project version.
// The kernel binary, the REPL and the kernel_info_reply implementation
// version all report this value.
const Version = "0.1.0"

// ProtocolVersion is the Jupyter messaging protocol version spoken on
// every channel and stamped into every outgoing header.
const ProtocolVersion = "5.4"
