// xdagd is a full-node implementation of the xdag DAG-ledger.
//
// The default options are sane for most users. This means xdagd will work
// 'out of the box' for most users. However, there are also a wide variety
// of flags that can be used to control it.
//
// Usage:
//
//	xdagd [OPTIONS]
//
// For an up-to-date help message:
//
//	xdagd --help
//
// The long form of all option flags (except -C) can be specified in a
// configuration file that is automatically parsed when xdagd starts up.
// The default file is xdagd.conf in the data directory.
package main
