package config

import "testing"

func validConfig() Config {
	var c Config
	c.Network.NetworkID = "test-net"
	c.Network.ListenPort = 9000
	c.Network.MaxPeers = 10
	c.Consensus.BlockIntervalSecs = 10
	c.Logging.Level = "info"
	return c
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	c := validConfig()
	if err := Validate(&c); err != nil {
		t.Fatalf("expected valid config to pass, got %v", err)
	}
}

func TestValidateRejectsEmptyNetworkID(t *testing.T) {
	c := validConfig()
	c.Network.NetworkID = ""
	if err := Validate(&c); err == nil {
		t.Fatal("expected empty network_id to fail validation")
	}
}

func TestValidateRejectsOutOfRangePort(t *testing.T) {
	c := validConfig()
	c.Network.ListenPort = 70000
	if err := Validate(&c); err == nil {
		t.Fatal("expected out-of-range listen_port to fail validation")
	}
}

func TestValidateRequiresAuthorityKeyFileWhenAuthority(t *testing.T) {
	c := validConfig()
	c.Consensus.IsAuthority = true
	c.Consensus.AuthorityKeyFile = ""
	if err := Validate(&c); err == nil {
		t.Fatal("expected missing authority_key_file to fail when is_authority is true")
	}
	c.Consensus.AuthorityKeyFile = "authority.key"
	if err := Validate(&c); err != nil {
		t.Fatalf("expected config to pass once authority_key_file is set, got %v", err)
	}
}

func TestValidateRequiresDataDirWhenPersistent(t *testing.T) {
	c := validConfig()
	c.Storage.Persistent = true
	c.Storage.DataDir = ""
	if err := Validate(&c); err == nil {
		t.Fatal("expected missing data_dir to fail when storage.persistent is true")
	}
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	c := validConfig()
	c.Logging.Level = "verbose"
	if err := Validate(&c); err == nil {
		t.Fatal("expected unrecognized log level to fail validation")
	}
}
