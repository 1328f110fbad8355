package bundler

// DefaultOutput is where the bundle is written when nothing else is configured.
const DefaultOutput = "js/bundle.js"

// defaultManifest is the game's load order. Later files use classes defined by
// earlier ones, so the order must be kept when adding entries.
var defaultManifest = []string{
	"js/game/InputHandler.js",
	"js/game/audio/AudioManager.js",
	"js/game/entities/Particle.js",
	"js/game/entities/FloatingText.js",
	"js/game/entities/Projectile.js",
	"js/game/entities/PiercingProjectile.js",
	"js/game/entities/Missile.js",
	"js/game/entities/Drone.js",
	"js/game/entities/EnemyProjectile.js",
	"js/game/entities/EnemyMissile.js",
	"js/game/entities/Drop.js",
	"js/game/entities/Obstacle.js",
	"js/game/entities/Enemy.js",
	"js/game/entities/Chest.js",
	"js/game/entities/BossAltar.js",
	"js/game/entities/Boss.js",
	"js/game/entities/NextStageAltar.js",
	"js/game/entities/Player.js",
	"js/game/ui/Minimap.js",
	"js/game/systems/UpgradeSystem.js",
	"js/game/systems/WaveManager.js",
	"js/ui/UIManager.js",
	"js/game/Game.js",
	"js/game/main.js",
}

// DefaultManifest returns a copy of the built-in manifest.
func DefaultManifest() []string {
	m := make([]string, len(defaultManifest))
	copy(m, defaultManifest)
	return m
}
